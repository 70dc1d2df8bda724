package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rbhandari/attira-backend/api/responses"
	"github.com/rbhandari/attira-backend/api/validators"
	checkoutsvc "github.com/rbhandari/attira-backend/internal/checkout"
	"github.com/rbhandari/attira-backend/internal/shipping"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
	"github.com/rbhandari/attira-backend/pkg/types"
)

type checkoutRequest struct {
	PaymentMethod string        `json:"payment_method" validate:"required"`
	Address       types.Address `json:"address" validate:"required"`
	CouponCode    string        `json:"coupon_code"`
}

// Checkout turns the caller's cart into an order. The carrier manifest push
// runs after the order commit; its failure never fails the request.
func Checkout(svc checkoutsvc.Service, dispatcher *shipping.Dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.PaymentMethod))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.PlaceOrder(r.Context(), checkoutsvc.PlaceOrderInput{
			UserID:        userID,
			PaymentMethod: method,
			Address:       payload.Address,
			CouponCode:    strings.TrimSpace(payload.CouponCode),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		manifestAfterCommit(r.Context(), dispatcher, order)

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func manifestAfterCommit(ctx context.Context, dispatcher *shipping.Dispatcher, order *models.Order) {
	if dispatcher == nil || order == nil {
		return
	}
	// detached from the request: the response must not wait on the carrier
	go dispatcher.ManifestOrder(context.WithoutCancel(ctx), order)
}
