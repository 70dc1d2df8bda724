package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/rbhandari/attira-backend/pkg/enums"
	"github.com/rbhandari/attira-backend/pkg/types"
)

// Order is the immutable financial record cut at checkout. All money columns
// are rounded to two decimal places; per-line tax detail keeps full precision
// on the items. GrandTotal = SubTotal + TaxTotal + ShippingFee - DiscountTotal.
type Order struct {
	ID          uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string      `gorm:"column:order_number;uniqueIndex;not null"`
	UserID      uuid.UUID   `gorm:"column:user_id;type:uuid;not null;index"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	SubTotal      decimal.Decimal      `gorm:"column:sub_total;type:numeric(12,2);not null"`
	TaxTotal      decimal.Decimal      `gorm:"column:tax_total;type:numeric(12,2);not null"`
	CGSTTotal     decimal.Decimal      `gorm:"column:cgst_total;type:numeric(12,2);not null"`
	SGSTTotal     decimal.Decimal      `gorm:"column:sgst_total;type:numeric(12,2);not null"`
	ShippingFee   decimal.Decimal      `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	DiscountTotal decimal.Decimal      `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	GrandTotal    decimal.Decimal      `gorm:"column:grand_total;type:numeric(12,2);not null"`
	AppliedCoupon *types.AppliedCoupon `gorm:"column:applied_coupon;type:jsonb;serializer:json"`

	Status        enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentRef    *string             `gorm:"column:payment_ref"`

	AWB          *string        `gorm:"column:awb"`
	CarrierScans pq.StringArray `gorm:"column:carrier_scans;type:text[]"`

	ShippingAddress types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	ShippedAt              *time.Time `gorm:"column:shipped_at"`
	DeliveredAt            *time.Time `gorm:"column:delivered_at"`
	ReturnWindowExpiresAt  *time.Time `gorm:"column:return_window_expires_at"`
	CancelledAt            *time.Time `gorm:"column:cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
