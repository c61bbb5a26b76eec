package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow-backend/pkg/enums"
)

// FinancialLine is the revenue owed to a seller for one paid order line.
type FinancialLine struct {
	ID         uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;uniqueIndex:financial_lines_order_product_key"`
	ProductID  uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;uniqueIndex:financial_lines_order_product_key"`
	SellerID   uuid.UUID                 `gorm:"column:seller_id;type:uuid;not null;index"`
	Status     enums.FinancialLineStatus `gorm:"column:status;type:text;not null"`
	PriceCents int64                     `gorm:"column:price_cents;not null"`
	Quantity   int                       `gorm:"column:quantity;not null"`
	TotalCents int64                     `gorm:"column:total_cents;not null"`
	CreatedAt  time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (FinancialLine) TableName() string { return "financial_lines" }
