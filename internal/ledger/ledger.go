package ledger

import (
	"context"
	"fmt"

	"github.com/angelmondragon/orderflow-backend/pkg/db"
	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger records seller revenue for paid orders. Lines are written once per
// order line and cancelled, never deleted.
type Ledger struct {
	repo Repository
}

// NewLedger wires the financial ledger.
func NewLedger(repo Repository) (*Ledger, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	return &Ledger{repo: repo}, nil
}

// CreateForOrder writes one PENDING line per order line inside tx.
func (l *Ledger) CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) ([]models.FinancialLine, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order required for financial lines")
	}
	if len(order.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("order %s has no lines", order.ID))
	}

	lines := make([]models.FinancialLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, models.FinancialLine{
			ID:         uuid.New(),
			OrderID:    order.ID,
			ProductID:  line.ProductID,
			SellerID:   line.SellerID,
			Status:     enums.FinancialLineStatusPending,
			PriceCents: line.PriceAtOrderCents,
			Quantity:   line.Quantity,
			TotalCents: line.LineTotalCents(),
		})
	}

	if err := l.repo.WithTx(tx).CreateBatch(ctx, lines); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "financial lines already recorded for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create financial lines")
	}
	return lines, nil
}

// CancelForOrder moves every live line of the order to CANCELLED.
func (l *Ledger) CancelForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error) {
	sources := enums.FinancialLineSourcesFor(enums.FinancialLineStatusCancelled)
	cancelled, err := l.repo.WithTx(tx).UpdateStatusByOrder(ctx, orderID, sources, enums.FinancialLineStatusCancelled)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel financial lines")
	}
	return cancelled, nil
}

// ListByOrder returns an order's lines oldest first.
func (l *Ledger) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.FinancialLine, error) {
	lines, err := l.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list financial lines")
	}
	return lines, nil
}
