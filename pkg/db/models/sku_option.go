package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SKUOption is a single purchasable size/color combination. The SKU code is
// globally unique across the catalog and stock never drops below zero; the
// only writer outside catalog management is the checkout decrement.
type SKUOption struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VariantID uuid.UUID       `gorm:"column:variant_id;type:uuid;not null;index"`
	SKU       string          `gorm:"column:sku;uniqueIndex;not null"`
	Size      string          `gorm:"column:size;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	MRP       decimal.Decimal `gorm:"column:mrp;type:numeric(12,2);not null"`
	Stock     int             `gorm:"column:stock;not null;default:0"`
	Position  int             `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
