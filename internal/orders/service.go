package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/orderflow-backend/internal/inventory"
	"github.com/angelmondragon/orderflow-backend/pkg/config"
	"github.com/angelmondragon/orderflow-backend/pkg/db"
	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/angelmondragon/orderflow-backend/pkg/logger"
	"github.com/angelmondragon/orderflow-backend/pkg/pagination"
	"github.com/angelmondragon/orderflow-backend/pkg/stripe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines the client-facing order operations.
type Service interface {
	CreateOrder(ctx context.Context, clientID uuid.UUID, lines []LineRequest) (*OrderResult, error)
	CancelPendingOrder(ctx context.Context, clientID, orderID uuid.UUID) (*models.Order, error)
	CancelPaidOrder(ctx context.Context, clientID, orderID uuid.UUID) (*models.Order, error)
	RetryPayment(ctx context.Context, clientID, orderID uuid.UUID) (*OrderResult, error)
	GetOrder(ctx context.Context, clientID, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, clientID uuid.UUID, filters ListFilters, params pagination.Params) (*pagination.Page[models.Order], error)
	ListRefunds(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*pagination.Page[models.Refund], error)
}

// ServiceParams wires the order orchestrator.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Users     clientDirectory
	Inventory inventoryLedger
	Refunds   refundRecorder
	Gateway   PaymentGateway
	Retirer   *Retirer
	Config    config.OrdersConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	users     clientDirectory
	inventory inventoryLedger
	refunds   refundRecorder
	gateway   PaymentGateway
	retirer   *Retirer
	window    time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the order orchestrator with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	case params.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	case params.Inventory == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory ledger required")
	case params.Refunds == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds service required")
	case params.Gateway == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	case params.Retirer == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cancellation engine required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		users:     params.Users,
		inventory: params.Inventory,
		refunds:   params.Refunds,
		gateway:   params.Gateway,
		retirer:   params.Retirer,
		window:    params.Config.CancellationWindow(),
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, clientID uuid.UUID, lines []LineRequest) (*OrderResult, error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	requested, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindActiveClient(ctx, clientID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Business(pkgerrors.CodeNotFound, pkgerrors.ReasonClientNotFound, "client not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}

	ids := make([]uuid.UUID, 0, len(requested))
	for _, line := range requested {
		ids = append(ids, line.ProductID)
	}
	products, err := s.inventory.LoadActive(ctx, ids)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		ClientID:        clientID,
		Status:          enums.OrderStatusPending,
		PaymentAttempts: 1,
		CreatedAt:       s.now(),
	}
	for i, line := range requested {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pkgerrors.Business(pkgerrors.CodeNotFound, pkgerrors.ReasonProductNotFound,
				fmt.Sprintf("product %s not found", line.ProductID))
		}
		if product.Quantity-line.Quantity < 0 {
			return nil, pkgerrors.Business(pkgerrors.CodeConflict, pkgerrors.ReasonInsufficientQuantity,
				fmt.Sprintf("only %d of product %s available", product.Quantity, product.ID))
		}
		if product.Seller == nil || product.Seller.Deleted {
			return nil, pkgerrors.Business(pkgerrors.CodeNotFound, pkgerrors.ReasonSellerNotFound,
				fmt.Sprintf("seller of product %s not found", product.ID))
		}

		snapshot := models.OrderLine{
			ID:                uuid.New(),
			OrderID:           order.ID,
			ProductID:         product.ID,
			SellerID:          product.SellerID,
			Position:          i,
			Name:              product.Name,
			Description:       product.Description,
			PriceAtOrderCents: product.PriceCents,
			Quantity:          line.Quantity,
		}
		order.TotalCents += snapshot.LineTotalCents()
		order.Lines = append(order.Lines, snapshot)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		return s.inventory.Reserve(ctx, tx, inventory.ReservationsFor(order.Lines))
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "total_cents", order.TotalCents), "order created")

	// stock stays reserved when checkout fails; the pending sweep releases it
	url, err := s.openCheckout(ctx, order, order.PaymentAttempts)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order, CheckoutURL: url}, nil
}

func (s *service) CancelPendingOrder(ctx context.Context, clientID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOwned(ctx, clientID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.Business(pkgerrors.CodeStateConflict, pkgerrors.ReasonCanOnlyCancelPending, "can only cancel pending orders")
	}
	return s.retirer.RetireOrder(ctx, RetireParams{
		Order:  order,
		From:   []enums.OrderStatus{enums.OrderStatusPending},
		Target: enums.OrderStatusCancelled,
	})
}

func (s *service) CancelPaidOrder(ctx context.Context, clientID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOwned(ctx, clientID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.Business(pkgerrors.CodeStateConflict, pkgerrors.ReasonCanOnlyCancelPaid, "can only cancel paid orders")
	}
	if order.PaidAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("paid order %s has no payment time", order.ID))
	}
	if s.now().Sub(*order.PaidAt) > s.window {
		return nil, pkgerrors.Business(pkgerrors.CodeStateConflict, pkgerrors.ReasonCancellationWindowExpired,
			fmt.Sprintf("you can only cancel an order within %d minutes of payment", int(s.window/time.Minute)))
	}
	return s.retirer.RetireOrder(ctx, RetireParams{
		Order:                order,
		From:                 []enums.OrderStatus{enums.OrderStatusPaid},
		Target:               enums.OrderStatusCancelledAfterPayment,
		UnwindFinancialLines: true,
		IssueRefund:          true,
	})
}

// RetryPayment opens a fresh checkout for an order whose payment failed.
// The reservation is kept and the status stays PAYMENT_ERROR until the
// gateway reports the new session as completed.
func (s *service) RetryPayment(ctx context.Context, clientID, orderID uuid.UUID) (*OrderResult, error) {
	order, err := s.loadOwned(ctx, clientID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPaymentError {
		return nil, pkgerrors.Business(pkgerrors.CodeStateConflict, pkgerrors.ReasonCanOnlyRetryPaymentError,
			"can only retry payment for orders with a payment error")
	}

	rows, err := s.repo.IncrementPaymentAttempts(ctx, order.ID, enums.OrderStatusPaymentError)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment attempt")
	}
	if rows == 0 {
		return nil, stateChanged(order)
	}
	order.PaymentAttempts++

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	url, err := s.openCheckout(ctx, order, order.PaymentAttempts)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order, CheckoutURL: url}, nil
}

func (s *service) GetOrder(ctx context.Context, clientID, orderID uuid.UUID) (*models.Order, error) {
	return s.loadOwned(ctx, clientID, orderID)
}

func (s *service) ListOrders(ctx context.Context, clientID uuid.UUID, filters ListFilters, params pagination.Params) (*pagination.Page[models.Order], error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", *filters.Status))
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByClient(ctx, clientID, filters, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

func (s *service) ListRefunds(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*pagination.Page[models.Refund], error) {
	return s.refunds.List(ctx, clientID, params)
}

// orders of other clients are indistinguishable from missing ones
func (s *service) loadOwned(ctx context.Context, clientID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.ClientID != clientID {
		return nil, orderNotFound()
	}
	return order, nil
}

func (s *service) openCheckout(ctx context.Context, order *models.Order, attempt int) (string, error) {
	lines := make([]stripe.CheckoutLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, stripe.CheckoutLine{
			Name:            line.Name,
			Description:     line.Description,
			UnitAmountCents: line.PriceAtOrderCents,
			Quantity:        line.Quantity,
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, stripe.CheckoutRequest{
		OrderID: order.ID,
		Attempt: attempt,
		Lines:   lines,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "attempt", attempt), "checkout session creation failed", err)
		return "", err
	}

	if err := s.repo.SetCheckoutSession(ctx, order.ID, session.ID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "checkout_session_id", session.ID), "store checkout session id failed")
	} else {
		order.CheckoutSessionID = &session.ID
	}
	return session.URL, nil
}

// MaxLineQuantity caps the units of one product in a single order, after merging.
const MaxLineQuantity = 10000

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(lines []LineRequest) ([]LineRequest, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order line is required")
	}
	merged := make([]LineRequest, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if line.Quantity > MaxLineQuantity {
			return nil, lineQuantityTooLarge(line.ProductID)
		}
		if i, ok := index[line.ProductID]; ok {
			if merged[i].Quantity > MaxLineQuantity-line.Quantity {
				return nil, lineQuantityTooLarge(line.ProductID)
			}
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

func lineQuantityTooLarge(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for product %s exceeds %d", productID, MaxLineQuantity)).
		WithDetails(map[string]any{"product_id": productID.String(), "max_quantity": MaxLineQuantity})
}

func orderNotFound() error {
	return pkgerrors.Business(pkgerrors.CodeNotFound, pkgerrors.ReasonOrderNotFound, "order not found")
}
