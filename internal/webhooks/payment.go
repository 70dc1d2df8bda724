package webhooks

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rbhandari/attira-backend/internal/orders"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
)

// paymentEvent is the provider's payment callback shape.
type paymentEvent struct {
	Type       string `json:"type"`
	OrderRef   string `json:"order_ref"`
	Status     string `json:"status"`
	PaymentRef string `json:"payment_ref"`
}

// HandlePayment applies a payment provider callback to the referenced order.
// Replays of an already-seen payload are acknowledged without side effects.
func (s *service) HandlePayment(ctx context.Context, payload []byte) (Result, error) {
	key, fresh, err := s.claimEvent(ctx, sourcePayment, payload)
	if err != nil {
		return Result{}, err
	}
	if !fresh {
		s.logg.Warn(ctx, "duplicate payment webhook dropped")
		return Result{Duplicate: true}, nil
	}

	var event paymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.releaseEvent(ctx, key)
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed payment webhook payload")
	}
	if strings.TrimSpace(event.OrderRef) == "" {
		s.releaseEvent(ctx, key)
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "payment webhook missing order reference")
	}
	status, err := enums.ParsePaymentStatus(event.Status)
	if err != nil {
		s.releaseEvent(ctx, key)
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment webhook carries unknown status")
	}

	input := orders.PaymentUpdateInput{
		OrderNumber: strings.TrimSpace(event.OrderRef),
		Status:      status,
	}
	if ref := strings.TrimSpace(event.PaymentRef); ref != "" {
		input.PaymentRef = &ref
	}

	if _, err := s.orders.ApplyPaymentUpdate(ctx, input); err != nil {
		s.releaseEvent(ctx, key)
		return Result{}, err
	}
	return Result{}, nil
}
