package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rbhandari/attira-backend/api/responses"
	"github.com/rbhandari/attira-backend/api/validators"
	returnsvc "github.com/rbhandari/attira-backend/internal/returns"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
)

type createReturnItemRequest struct {
	OrderItemID string `json:"order_item_id" validate:"required,uuid"`
	Qty         int    `json:"qty" validate:"required,min=1"`
	Reason      string `json:"reason"`
}

type createReturnRequest struct {
	OrderID string                    `json:"order_id" validate:"required,uuid"`
	Type    string                    `json:"type" validate:"required"`
	Reason  string                    `json:"reason" validate:"required"`
	Items   []createReturnItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateReturn opens a return claim against a delivered order.
func CreateReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createReturnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		returnType, err := enums.ParseReturnType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return type"))
			return
		}

		items := make([]returnsvc.RequestItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			itemID, err := uuid.Parse(item.OrderItemID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order item id"))
				return
			}
			items = append(items, returnsvc.RequestItemInput{
				OrderItemID: itemID,
				Qty:         item.Qty,
				Reason:      item.Reason,
			})
		}

		request, err := svc.Request(r.Context(), returnsvc.RequestInput{
			OrderID: orderID,
			UserID:  userID,
			Type:    returnType,
			Reason:  payload.Reason,
			Items:   items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

func ListReturns(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requests, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}

func GetReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := uuid.Parse(chi.URLParam(r, "returnID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return id"))
			return
		}

		request, err := svc.Get(r.Context(), userID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

type processReturnRequest struct {
	Status   string `json:"status" validate:"required"`
	Comments string `json:"comments"`
}

// AdminProcessReturn advances a return through the inspection pipeline.
func AdminProcessReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := uuid.Parse(chi.URLParam(r, "returnID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return id"))
			return
		}

		var payload processReturnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseReturnStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return status"))
			return
		}

		request, err := svc.Process(r.Context(), returnsvc.ProcessInput{
			RequestID: requestID,
			Target:    target,
			Comments:  payload.Comments,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}
