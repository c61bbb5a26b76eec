package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/orderflow-backend/internal/orders"
	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/angelmondragon/orderflow-backend/pkg/logger"
	"github.com/angelmondragon/orderflow-backend/pkg/metrics"
	"github.com/angelmondragon/orderflow-backend/pkg/pagination"
	"go.uber.org/multierr"
)

const (
	pendingOrderSweepJobName = "pending_order_sweep"
	defaultSweepBatchSize    = 100
)

var sweepSources = []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPaymentError}

type staleOrderFinder interface {
	FindStale(ctx context.Context, statuses []enums.OrderStatus, cutoff time.Time, after *pagination.Cursor, limit int) ([]models.Order, error)
}

type orderRetirer interface {
	RetireOrder(ctx context.Context, params orders.RetireParams) (*models.Order, error)
}

// PendingOrderSweepJobParams configure the stale order sweep.
type PendingOrderSweepJobParams struct {
	Logger        *logger.Logger
	Orders        staleOrderFinder
	Retirer       orderRetirer
	Metrics       *metrics.CronJobMetrics
	MaxPendingAge time.Duration
	BatchSize     int
	Now           func() time.Time
}

type pendingOrderSweepJob struct {
	logg      *logger.Logger
	orders    staleOrderFinder
	retirer   orderRetirer
	metrics   *metrics.CronJobMetrics
	maxAge    time.Duration
	batchSize int
	now       func() time.Time
}

// SweepResult tallies one sweep.
type SweepResult struct {
	Retired int
	Skipped int
	Failed  int
}

// NewPendingOrderSweepJob builds the job that cancels orders left unpaid past the allowed age.
func NewPendingOrderSweepJob(params PendingOrderSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Retirer == nil {
		return nil, fmt.Errorf("cancellation engine required")
	}
	if params.MaxPendingAge <= 0 {
		return nil, fmt.Errorf("max pending age must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &pendingOrderSweepJob{
		logg:      params.Logger,
		orders:    params.Orders,
		retirer:   params.Retirer,
		metrics:   params.Metrics,
		maxAge:    params.MaxPendingAge,
		batchSize: batch,
		now:       now,
	}, nil
}

func (j *pendingOrderSweepJob) Name() string { return pendingOrderSweepJobName }

func (j *pendingOrderSweepJob) Run(ctx context.Context) error {
	result, err := j.sweep(ctx)
	j.metrics.AddOrders(pendingOrderSweepJobName, "retired", result.Retired)
	j.metrics.AddOrders(pendingOrderSweepJobName, "skipped", result.Skipped)
	j.metrics.AddOrders(pendingOrderSweepJobName, "failed", result.Failed)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"retired": result.Retired,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}), "pending order sweep finished")
	return err
}

// sweep walks stale orders oldest first by keyset, so orders that fail stay
// behind the cursor and never hold back the ones after them.
func (j *pendingOrderSweepJob) sweep(ctx context.Context) (SweepResult, error) {
	var (
		result SweepResult
		errs   error
	)
	cutoff := j.now().Add(-j.maxAge)
	var after *pagination.Cursor

	for {
		if err := ctx.Err(); err != nil {
			return result, multierr.Append(errs, err)
		}
		batch, err := j.orders.FindStale(ctx, sweepSources, cutoff, after, j.batchSize)
		if err != nil {
			return result, multierr.Append(errs, fmt.Errorf("list stale orders: %w", err))
		}

		for i := range batch {
			order := &batch[i]
			_, err := j.retirer.RetireOrder(ctx, orders.RetireParams{
				Order:  order,
				From:   sweepSources,
				Target: enums.OrderStatusCancelledAutomatically,
			})
			switch {
			case err == nil:
				result.Retired++
			case pkgerrors.HasReason(err, pkgerrors.ReasonOrderStateChanged):
				// paid or cancelled between listing and retiring
				result.Skipped++
			default:
				result.Failed++
				errs = multierr.Append(errs, fmt.Errorf("retire order %s: %w", order.ID, err))
			}
		}

		if len(batch) < j.batchSize {
			return result, errs
		}
		last := batch[len(batch)-1]
		after = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
}
