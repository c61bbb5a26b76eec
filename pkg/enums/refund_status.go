package enums

import "fmt"

// RefundStatus tracks a gateway refund from local creation to settlement.
type RefundStatus string

const (
	RefundStatusCreated   RefundStatus = "CREATED"
	RefundStatusInitiated RefundStatus = "INITIATED"
	RefundStatusSuccess   RefundStatus = "SUCCESS"
	RefundStatusFailed    RefundStatus = "FAILED"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusCreated,
	RefundStatusInitiated,
	RefundStatusSuccess,
	RefundStatusFailed,
}

var refundStatusTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusCreated:   {RefundStatusInitiated},
	RefundStatusInitiated: {RefundStatusSuccess, RefundStatusFailed},
}

// String implements fmt.Stringer.
func (r RefundStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundStatus.
func (r RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a refund may move from r to next.
func (r RefundStatus) CanTransitionTo(next RefundStatus) bool {
	for _, candidate := range refundStatusTransitions[r] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseRefundStatus converts raw input into a RefundStatus.
func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}
