package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem pins one SKU at the unit price seen when it was added. Checkout
// re-resolves the SKU against the live catalog, so a stale price here is a
// display concern only.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SKUCode   string          `gorm:"column:sku_code;not null"`
	Size      string          `gorm:"column:size;not null"`
	Color     string          `gorm:"column:color;not null"`
	Qty       int             `gorm:"column:qty;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
