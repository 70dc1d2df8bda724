package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
)

// Repository defines persistence operations for cart records and items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error)
	Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemBySKU(ctx context.Context, cartID uuid.UUID, skuCode string) (*models.CartItem, error)
	ListItemsByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQty(ctx context.Context, itemID uuid.UUID, qty int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItemsByCart(ctx context.Context, cartID uuid.UUID) error
	UpdateTotal(ctx context.Context, cartID uuid.UUID, total string) error
}
