package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
)

// Repository defines persistence operations for return requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ReturnRequest, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error)
	Update(ctx context.Context, requestID uuid.UUID, updates map[string]any) error
}
