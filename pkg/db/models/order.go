package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow-backend/pkg/enums"
)

// Order is a client purchase. TotalCents is computed once from the line
// snapshots at creation and never recomputed.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ClientID          uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING';index"`
	TotalCents        int64             `gorm:"column:total_cents;not null"`
	PaymentIntentID   *string           `gorm:"column:payment_intent_id"`
	PaidAt            *time.Time        `gorm:"column:paid_at"`
	CheckoutSessionID *string           `gorm:"column:checkout_session_id"`
	PaymentAttempts   int               `gorm:"column:payment_attempts;not null;default:1"`
	Lines             []OrderLine       `gorm:"foreignKey:OrderID"`
	Deleted           bool              `gorm:"column:deleted;not null;default:false"`
	DeletedAt         *time.Time        `gorm:"column:deleted_at"`
	CreatedAt         time.Time         `gorm:"column:created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// OrderLine freezes the product price and seller at order time.
type OrderLine struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	SellerID          uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	Position          int       `gorm:"column:position;not null"`
	Name              string    `gorm:"column:name;not null"`
	Description       string    `gorm:"column:description;not null;default:''"`
	PriceAtOrderCents int64     `gorm:"column:price_at_order_cents;not null"`
	Quantity          int       `gorm:"column:quantity;not null"`
}

func (OrderLine) TableName() string { return "order_lines" }

// LineTotalCents is the snapshot price times quantity.
func (l OrderLine) LineTotalCents() int64 {
	return l.PriceAtOrderCents * int64(l.Quantity)
}
