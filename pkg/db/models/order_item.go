package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rbhandari/attira-backend/pkg/enums"
)

// OrderItem snapshots everything needed to render and account for a line
// after the catalog moves on. ProductID and SKUID are nullable so catalog
// deletions never orphan the financial record. Tax columns carry full
// precision; rounding happens once at the order totals.
type OrderItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID *uuid.UUID `gorm:"column:product_id;type:uuid"`
	SKUID     *uuid.UUID `gorm:"column:sku_id;type:uuid"`

	SKUCode  string  `gorm:"column:sku_code;not null"`
	Name     string  `gorm:"column:name;not null"`
	Color    string  `gorm:"column:color;not null"`
	Size     string  `gorm:"column:size;not null"`
	ImageURL *string `gorm:"column:image_url"`

	Qty        int             `gorm:"column:qty;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	GSTPercent decimal.Decimal `gorm:"column:gst_percent;type:numeric(5,2);not null"`

	TaxableValue decimal.Decimal `gorm:"column:taxable_value;type:numeric(14,4);not null"`
	GSTAmount    decimal.Decimal `gorm:"column:gst_amount;type:numeric(14,4);not null"`
	CGSTAmount   decimal.Decimal `gorm:"column:cgst_amount;type:numeric(14,4);not null"`
	SGSTAmount   decimal.Decimal `gorm:"column:sgst_amount;type:numeric(14,4);not null"`
	LineTotal    decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`

	ReturnStatus enums.ItemReturnStatus `gorm:"column:return_status;not null;default:'none'"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
