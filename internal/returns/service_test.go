package returns

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rbhandari/attira-backend/internal/catalog"
	"github.com/rbhandari/attira-backend/internal/orders"
	"github.com/rbhandari/attira-backend/pkg/db"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
	"github.com/rbhandari/attira-backend/pkg/types"
)

type fixture struct {
	svc  Service
	conn *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:returns_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{}, &models.ProductVariant{}, &models.SKUOption{},
		&models.Order{}, &models.OrderItem{},
		&models.ReturnRequest{}, &models.ReturnItem{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "returns-test", Output: io.Discard})
	svc, err := NewService(
		NewRepository(conn),
		orders.NewRepository(conn),
		catalog.NewRepository(conn),
		db.NewWithConn(conn),
		logg,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, conn: conn}
}

// seedDeliveredOrder creates a delivered order whose return window closes at
// deliveredAt + 7 days, with one line of qty 2 backed by a live sku.
func (f *fixture) seedDeliveredOrder(t *testing.T, userID uuid.UUID, deliveredAt time.Time) (models.Order, models.SKUOption) {
	t.Helper()

	product := models.Product{
		ID:         uuid.New(),
		Name:       "Wrap Dress",
		Slug:       "wrap-dress-" + uuid.NewString()[:8],
		GSTPercent: decimal.RequireFromString("12"),
		IsActive:   true,
	}
	if err := f.conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.ProductVariant{ID: uuid.New(), ProductID: product.ID, Color: "Rust"}
	if err := f.conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	sku := models.SKUOption{
		ID:        uuid.New(),
		VariantID: variant.ID,
		SKU:       "WD-RST-" + uuid.NewString()[:4],
		Size:      "S",
		Price:     decimal.RequireFromString("1799"),
		MRP:       decimal.RequireFromString("1999"),
		Stock:     1,
	}
	if err := f.conn.Create(&sku).Error; err != nil {
		t.Fatalf("seed sku: %v", err)
	}

	windowEnd := deliveredAt.AddDate(0, 0, 7)
	skuID := sku.ID
	productID := product.ID
	order := models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ATT-" + uuid.NewString()[:8],
		UserID:        userID,
		SubTotal:      decimal.RequireFromString("3212.50"),
		TaxTotal:      decimal.RequireFromString("385.50"),
		CGSTTotal:     decimal.RequireFromString("192.75"),
		SGSTTotal:     decimal.RequireFromString("192.75"),
		ShippingFee:   decimal.Zero,
		DiscountTotal: decimal.Zero,
		GrandTotal:    decimal.RequireFromString("3598"),
		Status:        enums.OrderStatusDelivered,
		PaymentStatus: enums.PaymentStatusPaid,
		PaymentMethod: enums.PaymentMethodCard,
		ShippingAddress: types.Address{
			Name: "Asha", Phone: "9999999999", Line1: "12 MG Road",
			City: "Bengaluru", State: "KA", PostalCode: "560001", Country: "IN",
		},
		DeliveredAt:           &deliveredAt,
		ReturnWindowExpiresAt: &windowEnd,
		Items: []models.OrderItem{{
			ID:           uuid.New(),
			ProductID:    &productID,
			SKUID:        &skuID,
			SKUCode:      sku.SKU,
			Name:         product.Name,
			Color:        variant.Color,
			Size:         sku.Size,
			Qty:          2,
			UnitPrice:    sku.Price,
			GSTPercent:   product.GSTPercent,
			TaxableValue: decimal.RequireFromString("3212.5"),
			GSTAmount:    decimal.RequireFromString("385.5"),
			CGSTAmount:   decimal.RequireFromString("192.75"),
			SGSTAmount:   decimal.RequireFromString("192.75"),
			LineTotal:    decimal.RequireFromString("3598"),
			ReturnStatus: enums.ItemReturnStatusNone,
		}},
	}
	if err := f.conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order, sku
}

func TestRequestWithinWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	// delivered six days ago, window still open
	order, _ := f.seedDeliveredOrder(t, userID, time.Now().UTC().AddDate(0, 0, -6))

	request, err := f.svc.Request(ctx, RequestInput{
		OrderID: order.ID,
		UserID:  userID,
		Type:    enums.ReturnTypeRefund,
		Reason:  "size runs small",
		Items:   []RequestItemInput{{OrderItemID: order.Items[0].ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if request.Status != enums.ReturnStatusRequested {
		t.Fatalf("expected requested status, got %s", request.Status)
	}
	if len(request.Items) != 1 {
		t.Fatalf("expected 1 return item")
	}

	var item models.OrderItem
	if err := f.conn.First(&item, "id = ?", order.Items[0].ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if item.ReturnStatus != enums.ItemReturnStatusRequested {
		t.Fatalf("expected item flagged requested, got %s", item.ReturnStatus)
	}
}

func TestRequestAfterWindowExpired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	// delivered eight days ago, window closed yesterday
	order, _ := f.seedDeliveredOrder(t, userID, time.Now().UTC().AddDate(0, 0, -8))

	_, err := f.svc.Request(ctx, RequestInput{
		OrderID: order.ID,
		UserID:  userID,
		Type:    enums.ReturnTypeRefund,
		Reason:  "changed my mind",
		Items:   []RequestItemInput{{OrderItemID: order.Items[0].ID, Qty: 1}},
	})
	if err == nil {
		t.Fatalf("expected window expiry rejection")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestRejectsDoubleClaim(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	order, _ := f.seedDeliveredOrder(t, userID, time.Now().UTC().AddDate(0, 0, -1))

	input := RequestInput{
		OrderID: order.ID,
		UserID:  userID,
		Type:    enums.ReturnTypeRefund,
		Reason:  "defective stitching",
		Items:   []RequestItemInput{{OrderItemID: order.Items[0].ID, Qty: 1}},
	}
	if _, err := f.svc.Request(ctx, input); err != nil {
		t.Fatalf("first request: %v", err)
	}

	_, err := f.svc.Request(ctx, input)
	if err == nil {
		t.Fatalf("expected double claim rejection")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	order, _ := f.seedDeliveredOrder(t, userID, time.Now().UTC().AddDate(0, 0, -1))

	// foreign user sees not found
	if _, err := f.svc.Request(ctx, RequestInput{
		OrderID: order.ID, UserID: uuid.New(), Type: enums.ReturnTypeRefund,
		Reason: "x", Items: []RequestItemInput{{OrderItemID: order.Items[0].ID, Qty: 1}},
	}); err == nil {
		t.Fatalf("expected foreign user rejection")
	}

	// qty above the ordered quantity
	if _, err := f.svc.Request(ctx, RequestInput{
		OrderID: order.ID, UserID: userID, Type: enums.ReturnTypeRefund,
		Reason: "x", Items: []RequestItemInput{{OrderItemID: order.Items[0].ID, Qty: 3}},
	}); err == nil {
		t.Fatalf("expected qty rejection")
	}

	// item from another order
	if _, err := f.svc.Request(ctx, RequestInput{
		OrderID: order.ID, UserID: userID, Type: enums.ReturnTypeRefund,
		Reason: "x", Items: []RequestItemInput{{OrderItemID: uuid.New(), Qty: 1}},
	}); err == nil {
		t.Fatalf("expected foreign item rejection")
	}
}

func TestProcessPipelineToRefund(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	order, sku := f.seedDeliveredOrder(t, userID, time.Now().UTC().AddDate(0, 0, -1))

	request, err := f.svc.Request(ctx, RequestInput{
		OrderID: order.ID, UserID: userID, Type: enums.ReturnTypeRefund,
		Reason: "color faded after one wash",
		Items:  []RequestItemInput{{OrderItemID: order.Items[0].ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	steps := []enums.ReturnStatus{
		enums.ReturnStatusApproved,
		enums.ReturnStatusPickupScheduled,
		enums.ReturnStatusReceived,
		enums.ReturnStatusQCPass,
		enums.ReturnStatusRefunded,
	}
	for _, step := range steps {
		if _, err := f.svc.Process(ctx, ProcessInput{RequestID: request.ID, Target: step}); err != nil {
			t.Fatalf("process %s: %v", step, err)
		}
	}

	var reloadedOrder models.Order
	if err := f.conn.First(&reloadedOrder, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloadedOrder.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected order refunded, got %s", reloadedOrder.PaymentStatus)
	}

	var item models.OrderItem
	if err := f.conn.First(&item, "id = ?", order.Items[0].ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if item.ReturnStatus != enums.ItemReturnStatusReturned {
		t.Fatalf("expected item returned, got %s", item.ReturnStatus)
	}

	// both units went back to stock (1 seeded + 2 returned)
	var reloadedSKU models.SKUOption
	if err := f.conn.First(&reloadedSKU, "id = ?", sku.ID).Error; err != nil {
		t.Fatalf("reload sku: %v", err)
	}
	if reloadedSKU.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", reloadedSKU.Stock)
	}
}

func TestProcessRejectsIllegalTransitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	order, _ := f.seedDeliveredOrder(t, userID, time.Now().UTC().AddDate(0, 0, -1))

	request, err := f.svc.Request(ctx, RequestInput{
		OrderID: order.ID, UserID: userID, Type: enums.ReturnTypeRefund,
		Reason: "wrong size",
		Items:  []RequestItemInput{{OrderItemID: order.Items[0].ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// refund straight from requested must fail
	if _, err := f.svc.Process(ctx, ProcessInput{RequestID: request.ID, Target: enums.ReturnStatusRefunded}); err == nil {
		t.Fatalf("expected refund-from-requested rejection")
	}

	// reject is allowed from requested and is terminal
	rejected, err := f.svc.Process(ctx, ProcessInput{RequestID: request.ID, Target: enums.ReturnStatusRejected, Comments: "photos show wear"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != enums.ReturnStatusRejected {
		t.Fatalf("expected rejected")
	}
	if rejected.Comments == nil || *rejected.Comments != "photos show wear" {
		t.Fatalf("expected comments recorded")
	}

	var item models.OrderItem
	if err := f.conn.First(&item, "id = ?", order.Items[0].ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if item.ReturnStatus != enums.ItemReturnStatusRejected {
		t.Fatalf("expected item rejected, got %s", item.ReturnStatus)
	}

	// terminal states accept nothing further
	if _, err := f.svc.Process(ctx, ProcessInput{RequestID: request.ID, Target: enums.ReturnStatusApproved}); err == nil {
		t.Fatalf("expected terminal rejection")
	}
}

func TestGetAndListScopeToOwner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	order, _ := f.seedDeliveredOrder(t, userID, time.Now().UTC().AddDate(0, 0, -1))

	request, err := f.svc.Request(ctx, RequestInput{
		OrderID: order.ID, UserID: userID, Type: enums.ReturnTypeExchange,
		Reason: "want a medium",
		Items:  []RequestItemInput{{OrderItemID: order.Items[0].ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := f.svc.Get(ctx, userID, request.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := f.svc.Get(ctx, uuid.New(), request.ID); err == nil {
		t.Fatalf("expected foreign get rejection")
	}

	list, err := f.svc.ListForUser(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 request, got %d", len(list))
	}
}
