package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateItemReturnStatus(ctx context.Context, itemID uuid.UUID, status string) error
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	FindStalePendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
