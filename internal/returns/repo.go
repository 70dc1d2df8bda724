package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	for i := range request.Items {
		if request.Items[i].ID == uuid.Nil {
			request.Items[i].ID = uuid.New()
		}
		request.Items[i].ReturnRequestID = request.ID
	}
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ReturnRequest, error) {
	var rows []models.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnRequest, error) {
	var rows []models.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, requestID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ?", requestID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
