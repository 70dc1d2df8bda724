package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/internal/cart"
	"github.com/rbhandari/attira-backend/internal/catalog"
	"github.com/rbhandari/attira-backend/internal/coupons"
	"github.com/rbhandari/attira-backend/internal/orders"
	"github.com/rbhandari/attira-backend/internal/tax"
	"github.com/rbhandari/attira-backend/pkg/config"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
	"github.com/rbhandari/attira-backend/pkg/metrics"
	"github.com/rbhandari/attira-backend/pkg/types"
)

type txRunner interface {
	WithTxTimeout(ctx context.Context, timeout time.Duration, fn func(tx *gorm.DB) error) error
}

// PlaceOrderInput captures everything needed to turn a cart into an order.
type PlaceOrderInput struct {
	UserID        uuid.UUID
	PaymentMethod enums.PaymentMethod
	Address       types.Address
	CouponCode    string
}

// Service turns carts into orders. The whole placement runs inside one
// bounded transaction: stock deduction, coupon redemption, order insert and
// cart clearing either all commit or all roll back.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
}

type service struct {
	carts    cart.Service
	catalog  catalog.Repository
	coupons  coupons.Service
	orders   orders.Repository
	tx       txRunner
	cfg      config.CheckoutConfig
	logg     *logger.Logger
	counters *metrics.CheckoutMetrics
}

// NewService builds a checkout service with the required dependencies.
func NewService(
	carts cart.Service,
	catalogRepo catalog.Repository,
	couponsSvc coupons.Service,
	ordersRepo orders.Repository,
	tx txRunner,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
	counters *metrics.CheckoutMetrics,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if couponsSvc == nil {
		return nil, fmt.Errorf("coupons service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		carts:    carts,
		catalog:  catalogRepo,
		coupons:  couponsSvc,
		orders:   ordersRepo,
		tx:       tx,
		cfg:      cfg,
		logg:     logg,
		counters: counters,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	order, err := s.placeOrder(ctx, input)
	if err != nil {
		s.counters.IncFailure(failureReason(err))
		return nil, err
	}
	s.counters.IncPlaced()
	return order, nil
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	input.Address.Normalize()
	if input.Address.Line1 == "" || input.Address.PostalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete")
	}

	record, err := s.carts.Get(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var placed *models.Order
	now := time.Now().UTC()

	err = s.tx.WithTxTimeout(ctx, s.cfg.TxTimeout, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)

		items := make([]models.OrderItem, 0, len(record.Items))
		grossTotal := decimal.Zero
		subTotal := decimal.Zero
		gstTotal := decimal.Zero
		cgstTotal := decimal.Zero
		sgstTotal := decimal.Zero

		for _, line := range record.Items {
			resolved, rerr := catalogRepo.ResolveSKU(ctx, line.SKUCode)
			if rerr != nil {
				if catalog.IsNotFound(rerr) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "sku no longer available").
						WithDetails(map[string]any{"sku": line.SKUCode})
				}
				return rerr
			}
			if !resolved.Product.IsActive {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sku no longer available").
					WithDetails(map[string]any{"sku": line.SKUCode})
			}

			ok, derr := catalogRepo.ConditionalDecrementStock(ctx, resolved.SKU.ID, line.Qty)
			if derr != nil {
				return derr
			}
			if !ok {
				s.counters.IncInsufficientStock()
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
					WithDetails(map[string]any{"sku": line.SKUCode, "available": resolved.SKU.Stock})
			}

			// snapshot against the live catalog price, not the cart's
			breakdown, terr := tax.DecomposeLine(resolved.SKU.Price, line.Qty, resolved.Product.GSTPercent)
			if terr != nil {
				return terr
			}
			lineTotal := resolved.SKU.Price.Mul(decimal.NewFromInt(int64(line.Qty)))

			skuID := resolved.SKU.ID
			productID := resolved.Product.ID
			var imageURL *string
			if len(resolved.Product.Images) > 0 {
				imageURL = &resolved.Product.Images[0]
			}

			items = append(items, models.OrderItem{
				ProductID:    &productID,
				SKUID:        &skuID,
				SKUCode:      resolved.SKU.SKU,
				Name:         resolved.Product.Name,
				Color:        resolved.Variant.Color,
				Size:         resolved.SKU.Size,
				ImageURL:     imageURL,
				Qty:          line.Qty,
				UnitPrice:    resolved.SKU.Price,
				GSTPercent:   resolved.Product.GSTPercent,
				TaxableValue: breakdown.TaxableValue,
				GSTAmount:    breakdown.GSTAmount,
				CGSTAmount:   breakdown.CGSTAmount,
				SGSTAmount:   breakdown.SGSTAmount,
				LineTotal:    lineTotal,
			})

			grossTotal = grossTotal.Add(lineTotal)
			subTotal = subTotal.Add(breakdown.TaxableValue)
			gstTotal = gstTotal.Add(breakdown.GSTAmount)
			cgstTotal = cgstTotal.Add(breakdown.CGSTAmount)
			sgstTotal = sgstTotal.Add(breakdown.SGSTAmount)
		}

		shippingFee := s.shippingFee(grossTotal)

		discount := decimal.Zero
		var applied *types.AppliedCoupon
		if input.CouponCode != "" {
			quote, verr := s.coupons.Validate(ctx, input.CouponCode, grossTotal, now)
			if verr != nil {
				return verr
			}
			if rerr := s.coupons.Redeem(ctx, tx, quote); rerr != nil {
				return rerr
			}
			discount = quote.Discount
			applied = &types.AppliedCoupon{Code: quote.Offer.Code, Discount: quote.Discount}
		}

		subTotal = subTotal.Round(2)
		gstTotal = gstTotal.Round(2)
		grandTotal := subTotal.Add(gstTotal).Add(shippingFee).Sub(discount)
		if grandTotal.IsNegative() {
			grandTotal = decimal.Zero
		}

		order := &models.Order{
			OrderNumber:     generateOrderNumber(now),
			UserID:          input.UserID,
			Items:           items,
			SubTotal:        subTotal,
			TaxTotal:        gstTotal,
			CGSTTotal:       cgstTotal.Round(2),
			SGSTTotal:       sgstTotal.Round(2),
			ShippingFee:     shippingFee,
			DiscountTotal:   discount,
			GrandTotal:      grandTotal,
			AppliedCoupon:   applied,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			PaymentMethod:   input.PaymentMethod,
			ShippingAddress: input.Address,
		}

		created, cerr := s.orders.WithTx(tx).Create(ctx, order)
		if cerr != nil {
			return cerr
		}

		if clerr := s.carts.Clear(ctx, tx, record.ID); clerr != nil {
			return clerr
		}

		placed = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, placed.OrderNumber), "order placed")
	return placed, nil
}

func (s *service) shippingFee(grossTotal decimal.Decimal) decimal.Decimal {
	fee, err := decimal.NewFromString(s.cfg.ShippingFee)
	if err != nil {
		fee = decimal.NewFromInt(49)
	}
	freeOver, err := decimal.NewFromString(s.cfg.FreeShippingOver)
	if err == nil && freeOver.IsPositive() && grossTotal.GreaterThanOrEqual(freeOver) {
		return decimal.Zero
	}
	return fee
}

func failureReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "internal"
	}
	switch typed.Code() {
	case pkgerrors.CodeConflict:
		return "conflict"
	case pkgerrors.CodeValidation:
		return "validation"
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeTransaction:
		return "transaction_timeout"
	default:
		return string(typed.Code())
	}
}
