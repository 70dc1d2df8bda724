package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rbhandari/attira-backend/pkg/enums"
)

// Offer is a coupon definition. Codes are stored uppercase and matched
// case-insensitively. UsageCount only moves through the atomic redemption
// inside checkout.
type Offer struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code          string             `gorm:"column:code;uniqueIndex;not null"`
	Type          enums.DiscountType `gorm:"column:type;not null"`
	Value         decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MaxDiscount   *decimal.Decimal   `gorm:"column:max_discount;type:numeric(12,2)"`
	MinOrderValue decimal.Decimal    `gorm:"column:min_order_value;type:numeric(12,2);not null;default:0"`
	StartDate     time.Time          `gorm:"column:start_date;not null"`
	EndDate       time.Time          `gorm:"column:end_date;not null"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	MaxUses       *int               `gorm:"column:max_uses"`
	UsageCount    int                `gorm:"column:usage_count;not null;default:0"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
