package types

import "github.com/shopspring/decimal"

// AppliedCoupon freezes the coupon outcome on an order. The discount is a
// snapshotted number, never a live reference to the offer row.
type AppliedCoupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}
