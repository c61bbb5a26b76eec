package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/refund"

	"github.com/angelmondragon/orderflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/angelmondragon/orderflow-backend/pkg/metrics"
)

// MetadataOrderID is the metadata key correlating sessions, intents and refunds with an order.
const MetadataOrderID = "order_id"

const (
	operationCheckout = "checkout_session"
	operationRefund   = "refund"

	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// CheckoutLine is one priced line shown on the hosted checkout page.
type CheckoutLine struct {
	Name            string
	Description     string
	UnitAmountCents int64
	Quantity        int
}

// CheckoutRequest asks the gateway for a hosted payment flow for one order.
// Attempt distinguishes retries of the same order so each gets its own session.
type CheckoutRequest struct {
	OrderID uuid.UUID
	Attempt int
	Lines   []CheckoutLine
}

// CheckoutSession is the gateway reference handed back to the client.
type CheckoutSession struct {
	ID  string
	URL string
}

// RefundRequest refunds part or all of a captured payment.
type RefundRequest struct {
	OrderID         uuid.UUID
	PaymentIntentID string
	AmountCents     int64
}

// GatewayParams wires the Stripe-backed payment gateway.
type GatewayParams struct {
	Config  config.StripeConfig
	Metrics *metrics.GatewayMetrics

	// overridable for tests; default to the package-level Stripe API
	CreateSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreateRefund  func(*stripe.RefundParams) (*stripe.Refund, error)
}

// Gateway creates checkout sessions and refunds behind a circuit breaker.
type Gateway struct {
	currency   string
	successURL string
	cancelURL  string
	metrics    *metrics.GatewayMetrics

	createSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	createRefund  func(*stripe.RefundParams) (*stripe.Refund, error)

	checkoutBreaker *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	refundBreaker   *gobreaker.CircuitBreaker[*stripe.Refund]
}

// NewGateway validates the redirect configuration and builds the gateway.
func NewGateway(params GatewayParams) (*Gateway, error) {
	cfg := params.Config
	if strings.TrimSpace(cfg.SuccessURL) == "" || strings.TrimSpace(cfg.CancelURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe success and cancel urls are required")
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	createSession := params.CreateSession
	if createSession == nil {
		createSession = session.New
	}
	createRefund := params.CreateRefund
	if createRefund == nil {
		createRefund = refund.New
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}

	return &Gateway{
		currency:        currency,
		successURL:      cfg.SuccessURL,
		cancelURL:       cfg.CancelURL,
		metrics:         params.Metrics,
		createSession:   createSession,
		createRefund:    createRefund,
		checkoutBreaker: gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](breakerSettings("stripe-checkout", failures, cooldown)),
		refundBreaker:   gobreaker.NewCircuitBreaker[*stripe.Refund](breakerSettings("stripe-refund", failures, cooldown)),
	}, nil
}

func breakerSettings(name string, failures uint32, cooldown time.Duration) gobreaker.Settings {
	return gobreaker.Settings{
		Name:    name,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: isBreakerSuccess,
	}
}

// Client errors (bad request, card declined) say nothing about gateway health.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status := stripeErr.HTTPStatusCode
		return status >= 400 && status < 500 && status != http.StatusTooManyRequests
	}
	return false
}

// CheckoutIdempotencyKey is stable per order and attempt.
func CheckoutIdempotencyKey(orderID uuid.UUID, attempt int) string {
	if attempt <= 0 {
		attempt = 1
	}
	return fmt.Sprintf("checkout:%s:%d", orderID, attempt)
}

// RefundIdempotencyKey is stable per order so a retried cancellation never refunds twice.
func RefundIdempotencyKey(orderID uuid.UUID) string {
	return fmt.Sprintf("refund:%s", orderID)
}

// CreateCheckoutSession opens a hosted checkout for the order lines.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required for checkout")
	}
	if len(req.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one line")
	}

	orderID := req.OrderID.String()
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(g.successURL),
		CancelURL:          stripe.String(g.cancelURL),
		ClientReferenceID:  stripe.String(orderID),
		Metadata:           map[string]string{MetadataOrderID: orderID},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{MetadataOrderID: orderID},
		},
	}
	for _, line := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if line.Description != "" {
			product.Description = stripe.String(line.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				UnitAmount:  stripe.Int64(line.UnitAmountCents),
				ProductData: product,
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}
	params.Context = ctx
	params.SetIdempotencyKey(CheckoutIdempotencyKey(req.OrderID, req.Attempt))

	created, err := g.checkoutBreaker.Execute(func() (*stripe.CheckoutSession, error) {
		return g.createSession(params)
	})
	if err != nil {
		g.metrics.Inc(operationCheckout, outcomeFor(err))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway checkout session failed")
	}
	g.metrics.Inc(operationCheckout, "ok")
	return &CheckoutSession{ID: created.ID, URL: created.URL}, nil
}

// Refund issues a refund against a captured payment intent and returns the gateway refund id.
func (g *Gateway) Refund(ctx context.Context, req RefundRequest) (string, error) {
	if strings.TrimSpace(req.PaymentIntentID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required for refund")
	}
	if req.AmountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Amount:        stripe.Int64(req.AmountCents),
		Metadata:      map[string]string{MetadataOrderID: req.OrderID.String()},
	}
	params.Context = ctx
	params.SetIdempotencyKey(RefundIdempotencyKey(req.OrderID))

	created, err := g.refundBreaker.Execute(func() (*stripe.Refund, error) {
		return g.createRefund(params)
	})
	if err != nil {
		g.metrics.Inc(operationRefund, outcomeFor(err))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway refund failed")
	}
	g.metrics.Inc(operationRefund, "ok")
	return created.ID, nil
}

func outcomeFor(err error) string {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "open"
	}
	return "error"
}
