package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rbhandari/attira-backend/api/responses"
	"github.com/rbhandari/attira-backend/api/validators"
	couponsvc "github.com/rbhandari/attira-backend/internal/coupons"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
)

type validateCouponRequest struct {
	Code       string `json:"code" validate:"required"`
	OrderValue string `json:"order_value" validate:"required"`
}

// ValidateCoupon quotes the discount a code would yield for the given order
// value without consuming a usage.
func ValidateCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload validateCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderValue, err := decimal.NewFromString(payload.OrderValue)
		if err != nil || orderValue.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order value must be a non-negative amount"))
			return
		}

		quote, err := svc.Validate(r.Context(), payload.Code, orderValue, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"code":     quote.Offer.Code,
			"type":     quote.Offer.Type,
			"discount": quote.Discount,
			"payable":  orderValue.Sub(quote.Discount),
		})
	}
}
