package orders

import (
	"time"

	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineRequest is one product and quantity a client wants to buy.
type LineRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// ListFilters narrows the client order list.
type ListFilters struct {
	Status *enums.OrderStatus
}

// OrderResult is what order creation and payment retries hand back.
type OrderResult struct {
	Order       *models.Order
	CheckoutURL string
}

// OrderLineDTO is the public shape of an order line.
type OrderLineDTO struct {
	ProductID    uuid.UUID `json:"product_id"`
	SellerID     uuid.UUID `json:"seller_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	PriceAtOrder string    `json:"price_at_order"`
	Quantity     int       `json:"quantity"`
	LineTotal    string    `json:"line_total"`
}

// OrderDTO is the public shape of an order.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	ClientID        uuid.UUID         `json:"client_id"`
	Status          enums.OrderStatus `json:"status"`
	Total           string            `json:"total"`
	TotalCents      int64             `json:"total_cents"`
	PaymentIntentID *string           `json:"payment_intent_id,omitempty"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	PaymentAttempts int               `json:"payment_attempts"`
	CheckoutURL     string            `json:"checkout_url,omitempty"`
	Lines           []OrderLineDTO    `json:"lines"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// OrderListDTO wraps a page of orders plus the next cursor.
type OrderListDTO struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// RefundDTO is the public shape of a refund.
type RefundDTO struct {
	ID             uuid.UUID          `json:"id"`
	OrderID        uuid.UUID          `json:"order_id"`
	Status         enums.RefundStatus `json:"status"`
	OriginalAmount string             `json:"original_amount"`
	RefundedAmount string             `json:"refunded_amount"`
	RefundID       string             `json:"refund_id"`
	CreatedAt      time.Time          `json:"created_at"`
}

// RefundListDTO wraps a page of refunds plus the next cursor.
type RefundListDTO struct {
	Refunds    []RefundDTO `json:"refunds"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// FormatCents renders integer cents as a two-decimal amount.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// NewOrderDTO maps an order model to its public shape.
func NewOrderDTO(order *models.Order, checkoutURL string) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		ClientID:        order.ClientID,
		Status:          order.Status,
		Total:           FormatCents(order.TotalCents),
		TotalCents:      order.TotalCents,
		PaymentIntentID: order.PaymentIntentID,
		PaidAt:          order.PaidAt,
		PaymentAttempts: order.PaymentAttempts,
		CheckoutURL:     checkoutURL,
		Lines:           make([]OrderLineDTO, 0, len(order.Lines)),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, line := range order.Lines {
		dto.Lines = append(dto.Lines, OrderLineDTO{
			ProductID:    line.ProductID,
			SellerID:     line.SellerID,
			Name:         line.Name,
			Description:  line.Description,
			PriceAtOrder: FormatCents(line.PriceAtOrderCents),
			Quantity:     line.Quantity,
			LineTotal:    FormatCents(line.LineTotalCents()),
		})
	}
	return dto
}

// NewRefundDTO maps a refund model to its public shape.
func NewRefundDTO(refund models.Refund) RefundDTO {
	return RefundDTO{
		ID:             refund.ID,
		OrderID:        refund.OrderID,
		Status:         refund.Status,
		OriginalAmount: FormatCents(refund.OriginalAmountCents),
		RefundedAmount: FormatCents(refund.RefundedAmountCents),
		RefundID:       refund.RefundID,
		CreatedAt:      refund.CreatedAt,
	}
}
