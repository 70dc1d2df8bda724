package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Quote is the outcome of validating a coupon against an order value.
type Quote struct {
	Offer    *models.Offer
	Discount decimal.Decimal
}

// Service validates coupon codes and redeems them during checkout.
// Validate never mutates state; Redeem only runs inside the checkout
// transaction so abandoned validations cannot burn usages.
type Service interface {
	Validate(ctx context.Context, code string, orderValue decimal.Decimal, now time.Time) (*Quote, error)
	Redeem(ctx context.Context, tx *gorm.DB, quote *Quote) error
}

type service struct {
	repo Repository
}

// NewService builds a coupons service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Validate(ctx context.Context, code string, orderValue decimal.Decimal, now time.Time) (*Quote, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if orderValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order value cannot be negative")
	}

	offer, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, err
	}

	if !offer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if now.Before(offer.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active yet")
	}
	if now.After(offer.EndDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired")
	}
	if orderValue.LessThan(offer.MinOrderValue) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order value below coupon minimum").
			WithDetails(map[string]any{"min_order_value": offer.MinOrderValue.String()})
	}
	if offer.MaxUses != nil && offer.UsageCount >= *offer.MaxUses {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}

	discount, err := ComputeDiscount(offer, orderValue)
	if err != nil {
		return nil, err
	}

	return &Quote{Offer: offer, Discount: discount}, nil
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, quote *Quote) error {
	if quote == nil || quote.Offer == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon quote required")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "redeem requires a transaction")
	}

	ok, err := s.repo.WithTx(tx).IncrementUsage(ctx, quote.Offer.ID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}
	return nil
}

// ComputeDiscount applies the offer's discount rule to an order value. The
// result is clamped by MaxDiscount (for percentage offers) and never exceeds
// the order value itself.
func ComputeDiscount(offer *models.Offer, orderValue decimal.Decimal) (decimal.Decimal, error) {
	var discount decimal.Decimal
	switch offer.Type {
	case enums.DiscountTypeFlat:
		discount = offer.Value
	case enums.DiscountTypePercentage:
		discount = orderValue.Mul(offer.Value).Div(hundred)
		if offer.MaxDiscount != nil && discount.GreaterThan(*offer.MaxDiscount) {
			discount = *offer.MaxDiscount
		}
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, "unknown discount type")
	}

	if discount.GreaterThan(orderValue) {
		discount = orderValue
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(2), nil
}
