package coupons

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupons repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// IncrementUsage bumps usage_count, refusing to pass max_uses. A false
// return means the cap was hit by a concurrent redemption.
func (r *repository) IncrementUsage(ctx context.Context, offerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND (max_uses IS NULL OR usage_count < max_uses)", offerID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
