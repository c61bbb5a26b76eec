package stripe

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/orderflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
)

type ctxMarker struct{}

func testStripeConfig() config.StripeConfig {
	return config.StripeConfig{
		SuccessURL:      "https://shop.example.com/success",
		CancelURL:       "https://shop.example.com/cancel",
		Currency:        "USD",
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	}
}

func TestCreateCheckoutSessionBuildsParams(t *testing.T) {
	orderID := uuid.New()
	var captured *stripe.CheckoutSessionParams

	gateway, err := NewGateway(GatewayParams{
		Config: testStripeConfig(),
		CreateSession: func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			captured = params
			return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}, nil
		},
	})
	if err != nil {
		t.Fatalf("NewGateway returned error: %v", err)
	}

	ctx := context.WithValue(context.Background(), ctxMarker{}, "marker")
	sess, err := gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		OrderID: orderID,
		Attempt: 2,
		Lines: []CheckoutLine{
			{Name: "Widget", Description: "blue", UnitAmountCents: 1250, Quantity: 3},
			{Name: "Gadget", UnitAmountCents: 500, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}
	if sess.ID != "cs_test_1" || sess.URL == "" {
		t.Fatalf("unexpected session %+v", sess)
	}

	if captured == nil {
		t.Fatal("expected params to be passed to stripe")
	}
	if captured.Context != ctx {
		t.Fatal("expected request context to be forwarded")
	}
	if got := *captured.IdempotencyKey; got != "checkout:"+orderID.String()+":2" {
		t.Fatalf("unexpected idempotency key %q", got)
	}
	if captured.Metadata[MetadataOrderID] != orderID.String() {
		t.Fatalf("session metadata missing order id: %v", captured.Metadata)
	}
	if captured.PaymentIntentData.Metadata[MetadataOrderID] != orderID.String() {
		t.Fatalf("payment intent metadata missing order id: %v", captured.PaymentIntentData.Metadata)
	}
	if len(captured.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(captured.LineItems))
	}
	first := captured.LineItems[0]
	if *first.PriceData.UnitAmount != 1250 || *first.Quantity != 3 || *first.PriceData.Currency != "usd" {
		t.Fatalf("unexpected first line item %+v", first.PriceData)
	}
	if captured.LineItems[1].PriceData.ProductData.Description != nil {
		t.Fatal("empty descriptions must not be sent")
	}
}

func TestCreateCheckoutSessionWrapsFailures(t *testing.T) {
	gateway, err := NewGateway(GatewayParams{
		Config: testStripeConfig(),
		CreateSession: func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return nil, errors.New("timeout")
		},
	})
	if err != nil {
		t.Fatalf("NewGateway returned error: %v", err)
	}

	_, err = gateway.CreateCheckoutSession(context.Background(), CheckoutRequest{
		OrderID: uuid.New(),
		Lines:   []CheckoutLine{{Name: "Widget", UnitAmountCents: 100, Quantity: 1}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreateCheckoutSessionRejectsEmptyOrder(t *testing.T) {
	gateway, err := NewGateway(GatewayParams{Config: testStripeConfig()})
	if err != nil {
		t.Fatalf("NewGateway returned error: %v", err)
	}
	if _, err := gateway.CreateCheckoutSession(context.Background(), CheckoutRequest{OrderID: uuid.New()}); err == nil {
		t.Fatal("expected empty line list to be rejected")
	}
}

func TestRefundUsesOrderIdempotencyKey(t *testing.T) {
	orderID := uuid.New()
	var keys []string

	gateway, err := NewGateway(GatewayParams{
		Config: testStripeConfig(),
		CreateRefund: func(params *stripe.RefundParams) (*stripe.Refund, error) {
			keys = append(keys, *params.IdempotencyKey)
			if *params.PaymentIntent != "pi_123" || *params.Amount != 875 {
				t.Fatalf("unexpected refund params %+v", params)
			}
			return &stripe.Refund{ID: "re_1"}, nil
		},
	})
	if err != nil {
		t.Fatalf("NewGateway returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		refundID, err := gateway.Refund(context.Background(), RefundRequest{OrderID: orderID, PaymentIntentID: "pi_123", AmountCents: 875})
		if err != nil {
			t.Fatalf("Refund returned error: %v", err)
		}
		if refundID != "re_1" {
			t.Fatalf("unexpected refund id %q", refundID)
		}
	}
	if len(keys) != 2 || keys[0] != keys[1] || keys[0] != RefundIdempotencyKey(orderID) {
		t.Fatalf("expected identical order-derived keys, got %v", keys)
	}
}

func TestRefundValidatesInput(t *testing.T) {
	gateway, err := NewGateway(GatewayParams{Config: testStripeConfig()})
	if err != nil {
		t.Fatalf("NewGateway returned error: %v", err)
	}
	if _, err := gateway.Refund(context.Background(), RefundRequest{OrderID: uuid.New(), AmountCents: 100}); err == nil {
		t.Fatal("expected missing payment intent to fail")
	}
	if _, err := gateway.Refund(context.Background(), RefundRequest{OrderID: uuid.New(), PaymentIntentID: "pi_1"}); err == nil {
		t.Fatal("expected zero amount to fail")
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	gateway, err := NewGateway(GatewayParams{
		Config: testStripeConfig(),
		CreateRefund: func(*stripe.RefundParams) (*stripe.Refund, error) {
			calls++
			return nil, errors.New("connection refused")
		},
	})
	if err != nil {
		t.Fatalf("NewGateway returned error: %v", err)
	}

	req := RefundRequest{OrderID: uuid.New(), PaymentIntentID: "pi_1", AmountCents: 100}
	for i := 0; i < 3; i++ {
		if _, err := gateway.Refund(context.Background(), req); err == nil {
			t.Fatal("expected refund failure")
		}
	}
	if calls != 2 {
		t.Fatalf("expected breaker to stop calls after 2 failures, got %d calls", calls)
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	if !isBreakerSuccess(&stripe.Error{HTTPStatusCode: http.StatusBadRequest}) {
		t.Fatal("400 responses must not trip the breaker")
	}
	if isBreakerSuccess(&stripe.Error{HTTPStatusCode: http.StatusTooManyRequests}) {
		t.Fatal("429 responses should count as failures")
	}
	if isBreakerSuccess(errors.New("dial tcp")) {
		t.Fatal("network errors should count as failures")
	}
}

func TestNewGatewayRequiresRedirectURLs(t *testing.T) {
	if _, err := NewGateway(GatewayParams{Config: config.StripeConfig{SuccessURL: "https://x"}}); err == nil {
		t.Fatal("expected missing cancel url to fail")
	}
}
