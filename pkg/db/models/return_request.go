package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rbhandari/attira-backend/pkg/enums"
)

// ReturnRequest tracks a post-delivery return or exchange claim through the
// inspection pipeline. At most one open request exists per order item.
type ReturnRequest struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.ReturnType   `gorm:"column:type;not null"`
	Reason    string             `gorm:"column:reason;not null"`
	Status    enums.ReturnStatus `gorm:"column:status;not null;default:'requested'"`
	Comments  *string            `gorm:"column:comments"`
	Items     []ReturnItem       `gorm:"foreignKey:ReturnRequestID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
