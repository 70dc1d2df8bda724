package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
)

// Repository defines persistence operations for coupon offers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Offer, error)
	IncrementUsage(ctx context.Context, offerID uuid.UUID) (bool, error)
}
