package inventory

import (
	"context"

	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns every write to products.quantity.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	Decrement(ctx context.Context, productID uuid.UUID, quantity int) (int64, error)
	Increment(ctx context.Context, productID uuid.UUID, quantity int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the inventory repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindActiveProducts loads non-deleted products with their seller.
func (r *repository) FindActiveProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Seller").
		Where("id IN ? AND deleted = ?", ids, false).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Decrement removes quantity from stock only when enough is left; zero rows means it was not.
func (r *repository) Decrement(ctx context.Context, productID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND deleted = ? AND quantity >= ?", productID, false, quantity).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
	return res.RowsAffected, res.Error
}

// Increment returns reserved quantity to stock, including for products deleted since.
func (r *repository) Increment(ctx context.Context, productID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity))
	return res.RowsAffected, res.Error
}
