package orders

import (
	"context"
	"fmt"

	"github.com/angelmondragon/orderflow-backend/internal/inventory"
	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/angelmondragon/orderflow-backend/pkg/logger"
	"github.com/angelmondragon/orderflow-backend/pkg/stripe"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RetireParams selects how an order is unwound.
//
//	client cancels PENDING         From {PENDING}                Target CANCELLED
//	client cancels PAID in window  From {PAID}                   Target CANCELLED_AFTER_PAYMENT, unwind + refund
//	sweep of stale unpaid orders   From {PENDING, PAYMENT_ERROR} Target CANCELLED_AUTOMATICALLY
type RetireParams struct {
	Order                *models.Order
	From                 []enums.OrderStatus
	Target               enums.OrderStatus
	UnwindFinancialLines bool
	IssueRefund          bool
}

// RetirerParams wires the cancellation engine.
type RetirerParams struct {
	Repo       Repository
	Tx         txRunner
	Inventory  inventoryLedger
	Ledger     financialLedger
	Refunds    refundRecorder
	Gateway    PaymentGateway
	RefundRate decimal.Decimal
	Logger     *logger.Logger
}

// Retirer is the single unwind primitive behind every cancellation path.
type Retirer struct {
	repo       Repository
	tx         txRunner
	inventory  inventoryLedger
	ledger     financialLedger
	refunds    refundRecorder
	gateway    PaymentGateway
	refundRate decimal.Decimal
	logg       *logger.Logger
}

// NewRetirer validates dependencies and builds the cancellation engine.
func NewRetirer(params RetirerParams) (*Retirer, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	case params.Inventory == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory ledger required")
	case params.Ledger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "financial ledger required")
	case params.Refunds == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds service required")
	case params.Gateway == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.RefundRate.IsNegative() || params.RefundRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refund rate must be between 0 and 100")
	}
	return &Retirer{
		repo:       params.Repo,
		tx:         params.Tx,
		inventory:  params.Inventory,
		ledger:     params.Ledger,
		refunds:    params.Refunds,
		gateway:    params.Gateway,
		refundRate: params.RefundRate,
		logg:       params.Logger,
	}, nil
}

// RefundAmount applies rate percent to total, rounding half up to whole cents.
func RefundAmount(totalCents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(totalCents).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// RetireOrder moves the order to params.Target, releasing its stock and
// optionally cancelling its financial lines and refunding the payment.
//
// The gateway refund happens before the local transaction. Inside it the
// status flip runs first and is guarded by the source statuses, so two
// concurrent retirements cannot both restore stock.
func (r *Retirer) RetireOrder(ctx context.Context, params RetireParams) (*models.Order, error) {
	order := params.Order
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}
	if err := enums.ValidateOrderTransition(params.From, params.Target); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order transition not allowed").
			WithReason(pkgerrors.ReasonTransitionNotAllowed)
	}
	if !containsStatus(params.From, order.Status) {
		return nil, stateChanged(order)
	}
	if len(order.Lines) == 0 {
		reloaded, err := r.repo.FindByID(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
		}
		order = reloaded
	}

	ctx = r.logg.WithOrderID(ctx, order.ID.String())

	var refund *models.Refund
	if params.IssueRefund {
		issued, err := r.issueRefund(ctx, order)
		if err != nil {
			return nil, err
		}
		refund = issued
	}

	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.repo.WithTx(tx).TransitionStatus(ctx, order.ID, params.From, params.Target, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if rows == 0 {
			return stateChanged(order)
		}

		if params.UnwindFinancialLines {
			if _, err := r.ledger.CancelForOrder(ctx, tx, order.ID); err != nil {
				return err
			}
		}
		if refund != nil {
			if err := r.refunds.Record(ctx, tx, refund); err != nil {
				return err
			}
		}
		return r.inventory.Restore(ctx, tx, inventory.ReservationsFor(order.Lines))
	})
	if err != nil {
		if refund != nil {
			r.logReconciliation(ctx, order, refund, err)
		}
		return nil, err
	}

	r.logg.Info(r.logg.WithFields(ctx, map[string]any{
		"from_status": order.Status,
		"to_status":   params.Target,
		"refunded":    refund != nil,
	}), "order retired")

	updated, err := r.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return updated, nil
}

func (r *Retirer) issueRefund(ctx context.Context, order *models.Order) (*models.Refund, error) {
	if order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("paid order %s has no payment intent", order.ID))
	}
	existing, err := r.refunds.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.Business(pkgerrors.CodeConflict, pkgerrors.ReasonRefundAlreadyExists, "order already refunded")
	}

	amount := RefundAmount(order.TotalCents, r.refundRate)
	if amount <= 0 {
		return nil, nil
	}
	refundID, err := r.gateway.Refund(ctx, stripe.RefundRequest{
		OrderID:         order.ID,
		PaymentIntentID: *order.PaymentIntentID,
		AmountCents:     amount,
	})
	if err != nil {
		return nil, err
	}
	return &models.Refund{
		ClientID:            order.ClientID,
		OrderID:             order.ID,
		OriginalAmountCents: order.TotalCents,
		RefundedAmountCents: amount,
		RefundID:            refundID,
	}, nil
}

// the external refund exists with no local record; operators match on these fields
func (r *Retirer) logReconciliation(ctx context.Context, order *models.Order, refund *models.Refund, err error) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"refund_id":         refund.RefundID,
		"payment_intent_id": *order.PaymentIntentID,
		"amount_cents":      refund.RefundedAmountCents,
		"error_dump":        pkgerrors.Dump(err),
	})
	r.logg.Error(ctx, "gateway refund issued but order cancellation did not commit", err)
}

func stateChanged(order *models.Order) error {
	return pkgerrors.Business(pkgerrors.CodeStateConflict, pkgerrors.ReasonOrderStateChanged,
		fmt.Sprintf("order %s changed state concurrently", order.ID))
}

func containsStatus(statuses []enums.OrderStatus, status enums.OrderStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}
