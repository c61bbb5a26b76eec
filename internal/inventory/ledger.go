package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reservation is stock held by one order line.
type Reservation struct {
	ProductID uuid.UUID
	Quantity  int
}

// Ledger reserves and restores stock inside caller-owned transactions.
type Ledger struct {
	repo Repository
}

// NewLedger wires the inventory ledger.
func NewLedger(repo Repository) (*Ledger, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory repository required")
	}
	return &Ledger{repo: repo}, nil
}

// ReservationsFor derives the held stock from an order's lines.
func ReservationsFor(lines []models.OrderLine) []Reservation {
	reservations := make([]Reservation, 0, len(lines))
	for _, line := range lines {
		reservations = append(reservations, Reservation{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return reservations
}

// LoadActive returns the requested non-deleted products keyed by id.
func (l *Ledger) LoadActive(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	products, err := l.repo.FindActiveProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	return byID, nil
}

// Reserve decrements stock for every reservation. Any shortfall fails the whole
// call; the caller's transaction must roll back so no partial reservation survives.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, reservations []Reservation) error {
	repo := l.repo.WithTx(tx)
	for _, r := range ordered(reservations) {
		if r.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}
		rows, err := repo.Decrement(ctx, r.ProductID, r.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
		}
		if rows == 0 {
			return pkgerrors.Business(pkgerrors.CodeConflict, pkgerrors.ReasonInsufficientQuantity,
				fmt.Sprintf("insufficient quantity for product %s", r.ProductID))
		}
	}
	return nil
}

// Restore adds every reservation back to stock.
func (l *Ledger) Restore(ctx context.Context, tx *gorm.DB, reservations []Reservation) error {
	repo := l.repo.WithTx(tx)
	for _, r := range ordered(reservations) {
		if r.Quantity <= 0 {
			continue
		}
		rows, err := repo.Increment(ctx, r.ProductID, r.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore stock")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("product %s missing while restoring stock", r.ProductID))
		}
	}
	return nil
}

// product ids are locked in a fixed order so concurrent orders cannot deadlock
func ordered(reservations []Reservation) []Reservation {
	sorted := make([]Reservation, len(reservations))
	copy(sorted, reservations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProductID.String() < sorted[j].ProductID.String()
	})
	return sorted
}
