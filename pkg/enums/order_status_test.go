package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusPaymentError, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusCancelledAutomatically, true},
		{OrderStatusPending, OrderStatusCancelledAfterPayment, false},
		{OrderStatusPaymentError, OrderStatusPaid, true},
		{OrderStatusPaymentError, OrderStatusCancelledAutomatically, true},
		{OrderStatusPaymentError, OrderStatusPending, false},
		{OrderStatusPaymentError, OrderStatusCancelled, false},
		{OrderStatusPaid, OrderStatusCancelledAfterPayment, true},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelledAutomatically, OrderStatusPaid, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusCancelled, OrderStatusCancelledAfterPayment, OrderStatusCancelledAutomatically}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusPaymentError} {
		if status.IsTerminal() {
			t.Fatalf("expected %s to allow further transitions", status)
		}
	}
}

func TestValidateOrderTransition(t *testing.T) {
	if err := ValidateOrderTransition([]OrderStatus{OrderStatusPending, OrderStatusPaymentError}, OrderStatusCancelledAutomatically); err != nil {
		t.Fatalf("expected sweep transition to be allowed: %v", err)
	}
	if err := ValidateOrderTransition([]OrderStatus{OrderStatusPending, OrderStatusPaid}, OrderStatusCancelled); err == nil {
		t.Fatal("expected PAID -> CANCELLED to be rejected")
	}
	if err := ValidateOrderTransition(nil, OrderStatusPaid); err == nil {
		t.Fatal("expected empty source list to be rejected")
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("PAYMENT_ERROR")
	if err != nil || status != OrderStatusPaymentError {
		t.Fatalf("unexpected parse result %q %v", status, err)
	}
	if _, err := ParseOrderStatus("paid"); err == nil {
		t.Fatal("expected lowercase status to be rejected")
	}
}

func TestFinancialLineSourcesFor(t *testing.T) {
	sources := FinancialLineSourcesFor(FinancialLineStatusCancelled)
	if len(sources) != 3 {
		t.Fatalf("expected three sources for CANCELLED, got %v", sources)
	}
	for _, source := range sources {
		if source == FinancialLineStatusCancelled {
			t.Fatal("CANCELLED must not list itself as a source")
		}
	}
	if FinancialLineStatusCancelled.CanTransitionTo(FinancialLineStatusPending) {
		t.Fatal("cancelled lines must stay cancelled")
	}
}

func TestRefundStatusTransitions(t *testing.T) {
	if !RefundStatusCreated.CanTransitionTo(RefundStatusInitiated) {
		t.Fatal("expected CREATED -> INITIATED")
	}
	if RefundStatusCreated.CanTransitionTo(RefundStatusSuccess) {
		t.Fatal("CREATED must pass through INITIATED before SUCCESS")
	}
	if RefundStatusSuccess.CanTransitionTo(RefundStatusFailed) {
		t.Fatal("settled refunds must not change")
	}
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole(" client ")
	if err != nil || role != UserRoleClient {
		t.Fatalf("unexpected role %q %v", role, err)
	}
	if _, err := ParseUserRole("owner"); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}
