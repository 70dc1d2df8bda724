package models

import (
	"time"

	"github.com/google/uuid"
)

// ReturnItem names one order item and quantity covered by a return request.
type ReturnItem struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ReturnRequestID uuid.UUID `gorm:"column:return_request_id;type:uuid;not null;index"`
	OrderItemID     uuid.UUID `gorm:"column:order_item_id;type:uuid;not null;index"`
	Qty             int       `gorm:"column:qty;not null"`
	Reason          string    `gorm:"column:reason"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
