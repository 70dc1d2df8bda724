package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is the catalog root. Pricing and stock live on the SKU options
// inside the variant tree, never on the product itself.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Slug        string           `gorm:"column:slug;uniqueIndex;not null"`
	Description *string          `gorm:"column:description"`
	GSTPercent  decimal.Decimal  `gorm:"column:gst_percent;type:numeric(5,2);not null"`
	Images      pq.StringArray   `gorm:"column:images;type:text[]"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
