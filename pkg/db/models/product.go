package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a seller listing. Quantity is the unreserved stock counter and is
// only mutated by the inventory ledger.
type Product struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index"`
	Seller      *User      `gorm:"foreignKey:SellerID"`
	CategoryID  *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Description string     `gorm:"column:description;not null;default:''"`
	PriceCents  int64      `gorm:"column:price_cents;not null"`
	Quantity    int        `gorm:"column:quantity;not null;default:0"`
	Deleted     bool       `gorm:"column:deleted;not null;default:false"`
	DeletedAt   *time.Time `gorm:"column:deleted_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
