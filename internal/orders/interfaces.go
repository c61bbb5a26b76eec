package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/orderflow-backend/internal/inventory"
	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	"github.com/angelmondragon/orderflow-backend/pkg/pagination"
	"github.com/angelmondragon/orderflow-backend/pkg/stripe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (int64, error)
	IncrementPaymentAttempts(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (int64, error)
	SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error
	ListByClient(ctx context.Context, clientID uuid.UUID, filters ListFilters, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	FindStale(ctx context.Context, statuses []enums.OrderStatus, cutoff time.Time, after *pagination.Cursor, limit int) ([]models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type clientDirectory interface {
	FindActiveClient(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type inventoryLedger interface {
	LoadActive(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	Reserve(ctx context.Context, tx *gorm.DB, reservations []inventory.Reservation) error
	Restore(ctx context.Context, tx *gorm.DB, reservations []inventory.Reservation) error
}

type financialLedger interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) ([]models.FinancialLine, error)
	CancelForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error)
}

type refundRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, refund *models.Refund) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Refund, error)
	List(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*pagination.Page[models.Refund], error)
}

// PaymentGateway is the slice of the Stripe adapter the orchestrator needs.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (*stripe.CheckoutSession, error)
	Refund(ctx context.Context, req stripe.RefundRequest) (string, error)
}
