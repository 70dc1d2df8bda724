package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartRecord is the single persistent cart per user. TotalPrice is derived
// from the items and recomputed on every mutation.
type CartRecord struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	Items      []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
