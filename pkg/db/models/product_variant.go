package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is one color of a product, owning its size-level SKU options.
type ProductVariant struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID   `gorm:"column:product_id;type:uuid;not null;index"`
	Color     string      `gorm:"column:color;not null"`
	Position  int         `gorm:"column:position;not null;default:0"`
	Options   []SKUOption `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
