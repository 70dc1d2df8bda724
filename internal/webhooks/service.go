package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rbhandari/attira-backend/internal/orders"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/logger"
	"github.com/rbhandari/attira-backend/pkg/redis"
)

const (
	sourcePayment  = "payment"
	sourceShipping = "shipping"
)

// orderUpdater is the slice of the orders service the webhook ingest needs.
type orderUpdater interface {
	ApplyPaymentUpdate(ctx context.Context, input orders.PaymentUpdateInput) (*models.Order, error)
	ApplyCarrierStatus(ctx context.Context, input orders.CarrierStatusInput) error
}

// Result reports whether an event was applied or dropped as a replay.
type Result struct {
	Duplicate bool
}

// Service ingests provider callbacks. Every event is deduplicated on a
// digest of its raw payload before any order state is touched.
type Service interface {
	HandlePayment(ctx context.Context, payload []byte) (Result, error)
	HandleShipping(ctx context.Context, payload []byte) (Result, error)
}

type service struct {
	orders   orderUpdater
	dedupe   redis.DedupeStore
	logg     *logger.Logger
	eventTTL time.Duration
}

// NewService builds the webhook ingest service.
func NewService(ordersSvc orderUpdater, dedupe redis.DedupeStore, logg *logger.Logger, eventTTL time.Duration) (Service, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if eventTTL <= 0 {
		eventTTL = 30 * 24 * time.Hour
	}
	return &service{orders: ordersSvc, dedupe: dedupe, logg: logg, eventTTL: eventTTL}, nil
}

// claimEvent reserves the payload digest. A false return means the exact
// payload was already processed.
func (s *service) claimEvent(ctx context.Context, source string, payload []byte) (string, bool, error) {
	sum := sha256.Sum256(payload)
	key := s.dedupe.WebhookEventKey(source, hex.EncodeToString(sum[:]))
	fresh, err := s.dedupe.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.eventTTL)
	if err != nil {
		return "", false, fmt.Errorf("webhook dedupe: %w", err)
	}
	return key, fresh, nil
}

// releaseEvent drops the reservation so the provider's retry can land after
// a processing failure.
func (s *service) releaseEvent(ctx context.Context, key string) {
	if err := s.dedupe.Del(ctx, key); err != nil {
		s.logg.Error(ctx, "releasing webhook dedupe key", err)
	}
}
