package ledger

import (
	"context"

	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for financial lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, lines []models.FinancialLine) error
	UpdateStatusByOrder(ctx context.Context, orderID uuid.UUID, from []enums.FinancialLineStatus, to enums.FinancialLineStatus) (int64, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.FinancialLine, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, lines []models.FinancialLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) UpdateStatusByOrder(ctx context.Context, orderID uuid.UUID, from []enums.FinancialLineStatus, to enums.FinancialLineStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.FinancialLine{}).
		Where("order_id = ? AND status IN ?", orderID, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.FinancialLine, error) {
	var lines []models.FinancialLine
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}
