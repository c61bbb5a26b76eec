package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/orderflow-backend/internal/orders"
	"github.com/angelmondragon/orderflow-backend/pkg/db"
	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/angelmondragon/orderflow-backend/pkg/logger"
	"github.com/angelmondragon/orderflow-backend/pkg/metrics"
	pkgstripe "github.com/angelmondragon/orderflow-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"
)

// Outcome says what applying an event did.
type Outcome string

const (
	OutcomeApplied Outcome = metrics.OutcomeApplied
	OutcomeNoop    Outcome = metrics.OutcomeNoop
	OutcomeIgnored Outcome = metrics.OutcomeIgnored
)

// PAYMENT_ERROR is accepted alongside PENDING: a retried checkout completes the same order.
var paidSources = []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPaymentError}

var errSourceStatusChanged = errors.New("order left source status")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type financialLedger interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) ([]models.FinancialLine, error)
}

type refundTransitioner interface {
	Transition(ctx context.Context, refundID string, to enums.RefundStatus) (bool, error)
}

type ServiceParams struct {
	Orders            orders.Repository
	Ledger            financialLedger
	Refunds           refundTransitioner
	TransactionRunner txRunner
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service applies Stripe events to orders and refunds. Every handler is
// guarded by the source status it expects, so redelivery is a no-op.
type Service struct {
	orders   orders.Repository
	ledger   financialLedger
	refunds  refundTransitioner
	txRunner txRunner
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "financial ledger required")
	}
	if params.Refunds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		orders:   params.Orders,
		ledger:   params.Ledger,
		refunds:  params.Refunds,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Outcome, error) {
	if event == nil || event.Data == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			return OutcomeIgnored, nil
		}
		orderID, err := orderIDFrom(session.Metadata, session.ClientReferenceID)
		if err != nil {
			return "", err
		}
		if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no payment intent")
		}
		return s.CheckoutCompleted(ctx, orderID, session.PaymentIntent.ID)

	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		orderID, err := orderIDFrom(intent.Metadata, "")
		if err != nil {
			return "", err
		}
		return s.PaymentFailed(ctx, orderID)

	case stripe.EventTypeRefundCreated, stripe.EventTypeRefundUpdated, stripe.EventTypeRefundFailed:
		var refund stripe.Refund
		if err := json.Unmarshal(event.Data.Raw, &refund); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode refund event")
		}
		if refund.ID == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "refund id missing")
		}
		target, ok := refundTarget(event.Type, refund.Status)
		if !ok {
			return OutcomeIgnored, nil
		}
		return s.RefundStatusChanged(ctx, refund.ID, target)

	default:
		return OutcomeIgnored, nil
	}
}

// CheckoutCompleted marks the order PAID and books its financial lines in one transaction.
func (s *Service) CheckoutCompleted(ctx context.Context, orderID uuid.UUID, paymentIntentID string) (Outcome, error) {
	if err := enums.ValidateOrderTransition(paidSources, enums.OrderStatusPaid); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "paid transition")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if !hasStatus(paidSources, order.Status) {
		s.logg.Info(s.logg.WithField(ctx, "status", order.Status), "checkout completion ignored for order outside payable states")
		return OutcomeNoop, nil
	}

	paidAt := s.now()
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.orders.WithTx(tx).TransitionStatus(ctx, order.ID, paidSources, enums.OrderStatusPaid, map[string]any{
			"payment_intent_id": paymentIntentID,
			"paid_at":           paidAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		if rows == 0 {
			return errSourceStatusChanged
		}
		_, err = s.ledger.CreateForOrder(ctx, tx, order)
		return err
	})
	if errors.Is(err, errSourceStatusChanged) {
		return OutcomeNoop, nil
	}
	if err != nil {
		return "", err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from_status":       order.Status,
		"payment_intent_id": paymentIntentID,
	}), "order paid")
	return OutcomeApplied, nil
}

// PaymentFailed moves a PENDING order to PAYMENT_ERROR. Stock stays reserved
// so the client can retry on the same order.
func (s *Service) PaymentFailed(ctx context.Context, orderID uuid.UUID) (Outcome, error) {
	from := []enums.OrderStatus{enums.OrderStatusPending}
	if err := enums.ValidateOrderTransition(from, enums.OrderStatusPaymentError); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment error transition")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if order.Status != enums.OrderStatusPending {
		return OutcomeNoop, nil
	}

	rows, err := s.orders.TransitionStatus(ctx, order.ID, from, enums.OrderStatusPaymentError, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark payment error")
	}
	if rows == 0 {
		return OutcomeNoop, nil
	}
	s.logg.Info(ctx, "order payment failed")
	return OutcomeApplied, nil
}

// RefundStatusChanged applies a gateway refund status to the local record.
func (s *Service) RefundStatusChanged(ctx context.Context, refundID string, to enums.RefundStatus) (Outcome, error) {
	applied, err := s.refunds.Transition(ctx, refundID, to)
	if err != nil {
		return "", err
	}
	if !applied {
		return OutcomeNoop, nil
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"refund_id": refundID, "to_status": to}), "refund status updated")
	return OutcomeApplied, nil
}

func (s *Service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Business(pkgerrors.CodeNotFound, pkgerrors.ReasonOrderNotFound,
				fmt.Sprintf("order %s not found", orderID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func refundTarget(eventType stripe.EventType, status stripe.RefundStatus) (enums.RefundStatus, bool) {
	switch eventType {
	case stripe.EventTypeRefundCreated:
		return enums.RefundStatusInitiated, true
	case stripe.EventTypeRefundFailed:
		return enums.RefundStatusFailed, true
	case stripe.EventTypeRefundUpdated:
		switch status {
		case stripe.RefundStatusSucceeded:
			return enums.RefundStatusSuccess, true
		case stripe.RefundStatusFailed:
			return enums.RefundStatusFailed, true
		}
	}
	return "", false
}

func orderIDFrom(metadata map[string]string, fallback string) (uuid.UUID, error) {
	raw := metadata[pkgstripe.MetadataOrderID]
	if raw == "" {
		raw = fallback
	}
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from event metadata")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id in event metadata")
	}
	return id, nil
}

func hasStatus(statuses []enums.OrderStatus, status enums.OrderStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}
