package webhooks

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/rbhandari/attira-backend/internal/orders"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
)

// shippingEvent is the carrier's tracking callback shape.
type shippingEvent struct {
	OrderID       string   `json:"order_id"`
	CurrentStatus string   `json:"current_status"`
	AWB           string   `json:"awb"`
	Scans         []string `json:"scans"`
}

// HandleShipping applies a carrier tracking callback to the referenced order.
// Unknown carrier statuses still record scans; stale events are absorbed by
// the orders service.
func (s *service) HandleShipping(ctx context.Context, payload []byte) (Result, error) {
	key, fresh, err := s.claimEvent(ctx, sourceShipping, payload)
	if err != nil {
		return Result{}, err
	}
	if !fresh {
		s.logg.Warn(ctx, "duplicate shipping webhook dropped")
		return Result{Duplicate: true}, nil
	}

	var event shippingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.releaseEvent(ctx, key)
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed shipping webhook payload")
	}
	orderID, err := uuid.Parse(strings.TrimSpace(event.OrderID))
	if err != nil {
		s.releaseEvent(ctx, key)
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "shipping webhook carries invalid order id")
	}
	if strings.TrimSpace(event.CurrentStatus) == "" {
		s.releaseEvent(ctx, key)
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping webhook missing current status")
	}

	input := orders.CarrierStatusInput{
		OrderID:       orderID,
		CarrierStatus: strings.ToLower(strings.TrimSpace(event.CurrentStatus)),
		AWB:           strings.TrimSpace(event.AWB),
		Scans:         event.Scans,
	}
	if err := s.orders.ApplyCarrierStatus(ctx, input); err != nil {
		s.releaseEvent(ctx, key)
		return Result{}, err
	}
	return Result{}, nil
}
