package refunds

import (
	"context"
	"fmt"

	"github.com/angelmondragon/orderflow-backend/pkg/db"
	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/angelmondragon/orderflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service records refunds and applies gateway refund status updates.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, refund *models.Refund) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Refund, error)
	Transition(ctx context.Context, refundID string, to enums.RefundStatus) (bool, error)
	List(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*pagination.Page[models.Refund], error)
}

type service struct {
	repo Repository
}

// NewService wires the refunds service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds repository required")
	}
	return &service{repo: repo}, nil
}

// Record inserts a CREATED refund inside tx. The unique order index turns a
// second refund for the same order into REFUND_ALREADY_EXISTS.
func (s *service) Record(ctx context.Context, tx *gorm.DB, refund *models.Refund) error {
	if refund == nil || refund.OrderID == uuid.Nil || refund.RefundID == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "refund requires order and gateway refund id")
	}
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	refund.Status = enums.RefundStatusCreated

	if err := s.repo.WithTx(tx).Create(ctx, refund); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Business(pkgerrors.CodeConflict, pkgerrors.ReasonRefundAlreadyExists, "order already refunded")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create refund")
	}
	return nil
}

// FindByOrder returns the order's refund or nil when none was issued.
func (s *service) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Refund, error) {
	refund, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	return refund, nil
}

// Transition applies a gateway status change. It reports false without error
// when the refund is not in the source status the transition table requires.
func (s *service) Transition(ctx context.Context, refundID string, to enums.RefundStatus) (bool, error) {
	from, ok := sourceFor(to)
	if !ok {
		return false, pkgerrors.Business(pkgerrors.CodeStateConflict, pkgerrors.ReasonTransitionNotAllowed,
			fmt.Sprintf("refunds cannot move to %s", to))
	}

	refund, err := s.repo.FindByRefundID(ctx, refundID)
	if err != nil {
		if db.IsNotFound(err) {
			return false, pkgerrors.Business(pkgerrors.CodeNotFound, pkgerrors.ReasonRefundNotFound, "refund not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	if refund.Status != from {
		return false, nil
	}

	rows, err := s.repo.UpdateStatus(ctx, refundID, from, to)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update refund status")
	}
	return rows > 0, nil
}

func (s *service) List(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*pagination.Page[models.Refund], error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByClient(ctx, clientID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refunds")
	}
	page := pagination.Trim(rows, params.Limit, func(r models.Refund) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return &page, nil
}

// each refund status has exactly one predecessor
func sourceFor(to enums.RefundStatus) (enums.RefundStatus, bool) {
	for _, candidate := range []enums.RefundStatus{enums.RefundStatusCreated, enums.RefundStatusInitiated} {
		if candidate.CanTransitionTo(to) {
			return candidate, true
		}
	}
	return "", false
}
