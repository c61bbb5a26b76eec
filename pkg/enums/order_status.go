package enums

import "fmt"

// OrderStatus tracks where an order sits in the payment lifecycle.
type OrderStatus string

const (
	OrderStatusPending                OrderStatus = "PENDING"
	OrderStatusPaid                   OrderStatus = "PAID"
	OrderStatusPaymentError           OrderStatus = "PAYMENT_ERROR"
	OrderStatusCancelled              OrderStatus = "CANCELLED"
	OrderStatusCancelledAfterPayment  OrderStatus = "CANCELLED_AFTER_PAYMENT"
	OrderStatusCancelledAutomatically OrderStatus = "CANCELLED_AUTOMATICALLY"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusPaymentError,
	OrderStatusCancelled,
	OrderStatusCancelledAfterPayment,
	OrderStatusCancelledAutomatically,
}

// PAYMENT_ERROR -> PAID covers a successful retry checkout for the same order.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {
		OrderStatusPaid,
		OrderStatusPaymentError,
		OrderStatusCancelled,
		OrderStatusCancelledAutomatically,
	},
	OrderStatusPaymentError: {
		OrderStatusPaid,
		OrderStatusCancelledAutomatically,
	},
	OrderStatusPaid: {
		OrderStatusCancelledAfterPayment,
	},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave this status.
func (s OrderStatus) IsTerminal() bool {
	return len(orderStatusTransitions[s]) == 0
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidateOrderTransition checks every source status against the target.
func ValidateOrderTransition(from []OrderStatus, to OrderStatus) error {
	if len(from) == 0 {
		return fmt.Errorf("at least one source status is required for %s", to)
	}
	for _, source := range from {
		if !source.CanTransitionTo(to) {
			return fmt.Errorf("order transition %s -> %s not allowed", source, to)
		}
	}
	return nil
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
