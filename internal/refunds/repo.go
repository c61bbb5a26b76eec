package refunds

import (
	"context"

	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	"github.com/angelmondragon/orderflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists refund records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, refund *models.Refund) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Refund, error)
	FindByRefundID(ctx context.Context, refundID string) (*models.Refund, error)
	UpdateStatus(ctx context.Context, refundID string, from enums.RefundStatus, to enums.RefundStatus) (int64, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Refund, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the refunds repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND deleted = ?", orderID, false).
		First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) FindByRefundID(ctx context.Context, refundID string) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).
		Where("refund_id = ? AND deleted = ?", refundID, false).
		First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

// UpdateStatus moves a refund from one status to the next; zero rows means it was no longer in from.
func (r *repository) UpdateStatus(ctx context.Context, refundID string, from enums.RefundStatus, to enums.RefundStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("refund_id = ? AND status = ? AND deleted = ?", refundID, from, false).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *repository) ListByClient(ctx context.Context, clientID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Refund, error) {
	query := r.db.WithContext(ctx).
		Where("client_id = ? AND deleted = ?", clientID, false)
	if cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Refund
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
