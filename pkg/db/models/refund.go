package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow-backend/pkg/enums"
)

// Refund records the gateway refund issued for a paid order cancellation.
// OrderID is unique: an order is refunded at most once.
type Refund struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ClientID            uuid.UUID          `gorm:"column:client_id;type:uuid;not null;index"`
	OrderID             uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex:refunds_order_id_key"`
	Status              enums.RefundStatus `gorm:"column:status;type:text;not null"`
	OriginalAmountCents int64              `gorm:"column:original_amount_cents;not null"`
	RefundedAmountCents int64              `gorm:"column:refunded_amount_cents;not null"`
	RefundID            string             `gorm:"column:refund_id;not null;uniqueIndex:refunds_refund_id_key"`
	Deleted             bool               `gorm:"column:deleted;not null;default:false"`
	DeletedAt           *time.Time         `gorm:"column:deleted_at"`
	CreatedAt           time.Time          `gorm:"column:created_at"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Refund) TableName() string { return "refunds" }
