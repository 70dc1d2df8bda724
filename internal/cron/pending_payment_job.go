package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/rbhandari/attira-backend/pkg/db/models"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
)

const (
	defaultPendingPaymentTTL = 24 * time.Hour
	defaultBatchLimit        = 200
)

type staleOrderReader interface {
	FindStalePendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, orderID, actorUserID uuid.UUID, isAdmin bool) (*models.Order, error)
}

// PendingPaymentJobParams configure the stale payment expiry scheduler.
type PendingPaymentJobParams struct {
	Logger     *logger.Logger
	Reader     staleOrderReader
	Orders     orderCanceller
	TTL        time.Duration
	BatchLimit int
}

// NewPendingPaymentJob builds the cron job that cancels prepaid orders whose
// payment never arrived. Cancellation restocks the reserved units.
func NewPendingPaymentJob(params PendingPaymentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingPaymentTTL
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	return &pendingPaymentJob{
		logg:   params.Logger,
		reader: params.Reader,
		orders: params.Orders,
		ttl:    ttl,
		limit:  limit,
		now:    time.Now,
	}, nil
}

type pendingPaymentJob struct {
	logg   *logger.Logger
	reader staleOrderReader
	orders orderCanceller
	ttl    time.Duration
	limit  int
	now    func() time.Time
}

func (j *pendingPaymentJob) Name() string { return "pending-payment-expiry" }

func (j *pendingPaymentJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.reader.FindStalePendingPayment(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	cancelled := 0
	for _, order := range stale {
		if _, err := j.orders.Cancel(ctx, order.ID, uuid.Nil, true); err != nil {
			// a payment or shipment can land between the scan and the
			// cancel; those orders are simply no longer stale
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				j.logg.Warn(j.logg.WithOrderNumber(ctx, order.OrderNumber), "stale order advanced before expiry")
				continue
			}
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.OrderNumber, err))
			continue
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"scanned": len(stale), "cancelled": cancelled})
	j.logg.Info(logCtx, "pending payment expiry loop complete")
	return multierr.Combine(errs...)
}
