package checkout

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rbhandari/attira-backend/internal/cart"
	"github.com/rbhandari/attira-backend/internal/catalog"
	"github.com/rbhandari/attira-backend/internal/coupons"
	"github.com/rbhandari/attira-backend/internal/orders"
	"github.com/rbhandari/attira-backend/pkg/config"
	"github.com/rbhandari/attira-backend/pkg/db"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
	"github.com/rbhandari/attira-backend/pkg/types"
)

type fixture struct {
	svc   Service
	carts cart.Service
	conn  *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{}, &models.ProductVariant{}, &models.SKUOption{},
		&models.CartRecord{}, &models.CartItem{},
		&models.Offer{},
		&models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	client := db.NewWithConn(conn)
	catalogRepo := catalog.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.NewRepository(conn), catalogRepo, client)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	couponsSvc, err := coupons.NewService(coupons.NewRepository(conn))
	if err != nil {
		t.Fatalf("coupons service: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	cfg := config.CheckoutConfig{
		TxTimeout:        5 * time.Second,
		ShippingFee:      "49",
		FreeShippingOver: "999",
		ReturnWindowDays: 7,
	}
	svc, err := NewService(cartSvc, catalogRepo, couponsSvc, orders.NewRepository(conn), client, cfg, logg, nil)
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}
	return &fixture{svc: svc, carts: cartSvc, conn: conn}
}

func (f *fixture) seedSKU(t *testing.T, skuCode, price, gst string, stock int) models.SKUOption {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		Name:       "Prod " + skuCode,
		Slug:       strings.ToLower("prod-" + skuCode),
		GSTPercent: decimal.RequireFromString(gst),
		IsActive:   true,
	}
	if err := f.conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.ProductVariant{ID: uuid.New(), ProductID: product.ID, Color: "Ecru"}
	if err := f.conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	sku := models.SKUOption{
		ID:        uuid.New(),
		VariantID: variant.ID,
		SKU:       skuCode,
		Size:      "M",
		Price:     decimal.RequireFromString(price),
		MRP:       decimal.RequireFromString(price),
		Stock:     stock,
	}
	if err := f.conn.Create(&sku).Error; err != nil {
		t.Fatalf("seed sku: %v", err)
	}
	return sku
}

func (f *fixture) seedCoupon(t *testing.T, code string, typ enums.DiscountType, value string, maxUses *int) models.Offer {
	t.Helper()
	offer := models.Offer{
		ID:        uuid.New(),
		Code:      code,
		Type:      typ,
		Value:     decimal.RequireFromString(value),
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
		IsActive:  true,
		MaxUses:   maxUses,
	}
	if err := f.conn.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	return offer
}

func testAddress() types.Address {
	return types.Address{
		Name: "Asha", Phone: "9999999999", Line1: "12 MG Road",
		City: "Bengaluru", State: "KA", PostalCode: "560001",
	}
}

func TestPlaceOrderComputesGSTTotals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	f.seedSKU(t, "KR-ECR-M", "750", "12", 5)

	if _, err := f.carts.AddItem(ctx, userID, "KR-ECR-M", 2); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodUPI,
		Address:       testAddress(),
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	// 1500 gross at 12% inclusive: taxable 1339.29, gst 160.71
	if order.SubTotal.String() != "1339.29" {
		t.Fatalf("expected sub total 1339.29, got %s", order.SubTotal)
	}
	if order.TaxTotal.String() != "160.71" {
		t.Fatalf("expected tax total 160.71, got %s", order.TaxTotal)
	}
	// 1500 clears the free shipping bar
	if !order.ShippingFee.IsZero() {
		t.Fatalf("expected free shipping, got %s", order.ShippingFee)
	}
	if order.GrandTotal.String() != "1500" {
		t.Fatalf("expected grand total 1500, got %s", order.GrandTotal)
	}
	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending/pending, got %s/%s", order.Status, order.PaymentStatus)
	}
	if !strings.HasPrefix(order.OrderNumber, "ATT-") {
		t.Fatalf("unexpected order number %s", order.OrderNumber)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if !item.CGSTAmount.Add(item.SGSTAmount).Equal(item.GSTAmount) {
		t.Fatalf("cgst+sgst != gst on line")
	}

	// stock deducted
	var sku models.SKUOption
	if err := f.conn.First(&sku, "sku = ?", "KR-ECR-M").Error; err != nil {
		t.Fatalf("reload sku: %v", err)
	}
	if sku.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", sku.Stock)
	}

	// cart cleared
	record, err := f.carts.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(record.Items) != 0 || !record.TotalPrice.IsZero() {
		t.Fatalf("expected cleared cart")
	}
}

func TestPlaceOrderAppliesShippingBelowThreshold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	f.seedSKU(t, "TS-ECR-S", "500", "5", 5)

	if _, err := f.carts.AddItem(ctx, userID, "TS-ECR-S", 1); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodCOD,
		Address:       testAddress(),
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.ShippingFee.String() != "49" {
		t.Fatalf("expected shipping 49, got %s", order.ShippingFee)
	}
	// sub + tax + shipping: 476.19 + 23.81 + 49
	if order.GrandTotal.String() != "549" {
		t.Fatalf("expected grand total 549, got %s", order.GrandTotal)
	}
}

func TestPlaceOrderRedeemsCoupon(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	f.seedSKU(t, "JK-ECR-L", "2000", "12", 5)
	uses := 3
	offer := f.seedCoupon(t, "FLAT200", enums.DiscountTypeFlat, "200", &uses)

	if _, err := f.carts.AddItem(ctx, userID, "JK-ECR-L", 1); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	order, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodCard,
		Address:       testAddress(),
		CouponCode:    "flat200",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.DiscountTotal.String() != "200" {
		t.Fatalf("expected discount 200, got %s", order.DiscountTotal)
	}
	if order.AppliedCoupon == nil || order.AppliedCoupon.Code != "FLAT200" {
		t.Fatalf("expected applied coupon snapshot")
	}
	if order.GrandTotal.String() != "1800" {
		t.Fatalf("expected grand total 1800, got %s", order.GrandTotal)
	}

	var reloaded models.Offer
	if err := f.conn.First(&reloaded, "id = ?", offer.ID).Error; err != nil {
		t.Fatalf("reload offer: %v", err)
	}
	if reloaded.UsageCount != 1 {
		t.Fatalf("expected usage 1, got %d", reloaded.UsageCount)
	}
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	f.seedSKU(t, "SC-ECR-M", "600", "12", 5)
	f.seedSKU(t, "SC-ECR-L", "600", "12", 1)

	if _, err := f.carts.AddItem(ctx, userID, "SC-ECR-M", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.carts.AddItem(ctx, userID, "SC-ECR-L", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodUPI,
		Address:       testAddress(),
	})
	if err == nil {
		t.Fatalf("expected insufficient stock failure")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	// the first line's decrement must have rolled back
	var skuM models.SKUOption
	if err := f.conn.First(&skuM, "sku = ?", "SC-ECR-M").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if skuM.Stock != 5 {
		t.Fatalf("expected rollback to restore stock 5, got %d", skuM.Stock)
	}

	// the cart survives the failed checkout
	record, err := f.carts.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(record.Items) != 2 {
		t.Fatalf("cart should be intact, got %d items", len(record.Items))
	}

	var count int64
	if err := f.conn.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("no order should exist, got %d", count)
	}
}

func TestPlaceOrderDeactivatedProductIsNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	f.seedSKU(t, "DX-ECR-M", "700", "12", 4)

	if _, err := f.carts.AddItem(ctx, userID, "DX-ECR-M", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	// product pulled from the catalog after the cart was built
	if err := f.conn.Model(&models.Product{}).
		Where("slug = ?", "prod-dx-ecr-m").
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodUPI,
		Address:       testAddress(),
	})
	if err == nil {
		t.Fatalf("expected vanished sku failure")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	var sku models.SKUOption
	if err := f.conn.First(&sku, "sku = ?", "DX-ECR-M").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if sku.Stock != 4 {
		t.Fatalf("stock must be untouched, got %d", sku.Stock)
	}
}

func TestPlaceOrderBadCouponRollsBackStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	f.seedSKU(t, "PL-ECR-M", "800", "12", 4)

	if _, err := f.carts.AddItem(ctx, userID, "PL-ECR-M", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodUPI,
		Address:       testAddress(),
		CouponCode:    "DOESNOTEXIST",
	})
	if err == nil {
		t.Fatalf("expected coupon failure")
	}

	var sku models.SKUOption
	if err := f.conn.First(&sku, "sku = ?", "PL-ECR-M").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if sku.Stock != 4 {
		t.Fatalf("expected stock restored to 4, got %d", sku.Stock)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	// empty cart
	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodUPI,
		Address:       testAddress(),
	})
	if err == nil {
		t.Fatalf("expected empty cart rejection")
	}

	// bad payment method
	_, err = f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: enums.PaymentMethod("crypto"),
		Address:       testAddress(),
	})
	if err == nil {
		t.Fatalf("expected payment method rejection")
	}

	// missing address
	_, err = f.svc.PlaceOrder(ctx, PlaceOrderInput{
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodUPI,
	})
	if err == nil {
		t.Fatalf("expected address rejection")
	}

	// missing identity
	_, err = f.svc.PlaceOrder(ctx, PlaceOrderInput{
		PaymentMethod: enums.PaymentMethodUPI,
		Address:       testAddress(),
	})
	if err == nil {
		t.Fatalf("expected identity rejection")
	}
}
