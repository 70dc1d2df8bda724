package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/rbhandari/attira-backend/api/responses"
	webhooksvc "github.com/rbhandari/attira-backend/internal/webhooks"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

// PaymentWebhook ingests payment provider callbacks.
func PaymentWebhook(svc webhooksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return webhookHandler(svc.HandlePayment, logg)
}

// ShippingWebhook ingests carrier tracking callbacks.
func ShippingWebhook(svc webhooksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return webhookHandler(svc.HandleShipping, logg)
}

func webhookHandler(handle func(ctx context.Context, payload []byte) (webhooksvc.Result, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading webhook body"))
			return
		}
		if len(payload) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "empty webhook body"))
			return
		}

		result, err := handle(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"received":  true,
			"duplicate": result.Duplicate,
		})
	}
}
