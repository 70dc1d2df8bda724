package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/pagination"
)

// ResolvedSKU carries a sku option together with its variant and product so
// checkout can snapshot names, colors and tax rates in one lookup.
type ResolvedSKU struct {
	SKU     models.SKUOption
	Variant models.ProductVariant
	Product models.Product
}

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	Query      string `json:"q,omitempty"`
	OnlyActive bool   `json:"-"`
}

// ProductList is one page of products plus the cursor for the next page.
type ProductList struct {
	Products   []models.Product
	NextCursor string
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListProducts(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ResolveSKU(ctx context.Context, skuCode string) (*ResolvedSKU, error)
	ConditionalDecrementStock(ctx context.Context, skuID uuid.UUID, qty int) (bool, error)
	RestockSKU(ctx context.Context, skuID uuid.UUID, qty int) error
}
