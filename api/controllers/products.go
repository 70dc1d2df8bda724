package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rbhandari/attira-backend/api/responses"
	"github.com/rbhandari/attira-backend/api/validators"
	"github.com/rbhandari/attira-backend/internal/catalog"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
	"github.com/rbhandari/attira-backend/pkg/pagination"
)

// ListProducts serves the public storefront catalog.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		filters := catalog.ListFilters{
			Query: strings.TrimSpace(r.URL.Query().Get("q")),
		}

		page, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"products":    page.Products,
			"next_cursor": page.NextCursor,
		})
	}
}

// GetProduct resolves a product by id or, failing that, by slug.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(chi.URLParam(r, "productRef"))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product reference required"))
			return
		}

		if id, err := uuid.Parse(ref); err == nil {
			product, err := svc.GetByID(r.Context(), id)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, product)
			return
		}

		product, err := svc.GetBySlug(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
