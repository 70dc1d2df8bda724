package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rbhandari/attira-backend/internal/catalog"
	"github.com/rbhandari/attira-backend/pkg/db"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{}, &models.ProductVariant{}, &models.SKUOption{},
		&models.CartRecord{}, &models.CartItem{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn), db.NewWithConn(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedSKU(t *testing.T, conn *gorm.DB, skuCode, price string, stock int) {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		Name:       "Test Product " + skuCode,
		Slug:       "test-" + skuCode,
		GSTPercent: decimal.RequireFromString("5"),
		IsActive:   true,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.ProductVariant{ID: uuid.New(), ProductID: product.ID, Color: "Black"}
	if err := conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	sku := models.SKUOption{
		ID:        uuid.New(),
		VariantID: variant.ID,
		SKU:       skuCode,
		Size:      "L",
		Price:     decimal.RequireFromString(price),
		MRP:       decimal.RequireFromString(price),
		Stock:     stock,
	}
	if err := conn.Create(&sku).Error; err != nil {
		t.Fatalf("seed sku: %v", err)
	}
}

func TestGetCreatesEmptyCart(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	userID := uuid.New()

	record, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.UserID != userID {
		t.Fatalf("wrong user on cart")
	}
	if len(record.Items) != 0 {
		t.Fatalf("expected empty cart")
	}

	again, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.ID != record.ID {
		t.Fatalf("expected the same cart on repeat get")
	}
}

func TestAddItemRecomputesTotal(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	seedSKU(t, conn, "TS-BLK-L", "499", 10)
	seedSKU(t, conn, "TS-BLK-M", "399", 10)
	userID := uuid.New()
	ctx := context.Background()

	record, err := svc.AddItem(ctx, userID, "TS-BLK-L", 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(record.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(record.Items))
	}
	if !record.TotalPrice.Equal(decimal.RequireFromString("998")) {
		t.Fatalf("expected total 998, got %s", record.TotalPrice)
	}

	record, err = svc.AddItem(ctx, userID, "TS-BLK-M", 1)
	if err != nil {
		t.Fatalf("add second: %v", err)
	}
	if len(record.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(record.Items))
	}
	if !record.TotalPrice.Equal(decimal.RequireFromString("1397")) {
		t.Fatalf("expected total 1397, got %s", record.TotalPrice)
	}
}

func TestAddItemMergesSameSKU(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	seedSKU(t, conn, "HD-GRY-S", "999", 10)
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, userID, "HD-GRY-S", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	record, err := svc.AddItem(ctx, userID, "HD-GRY-S", 2)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if len(record.Items) != 1 {
		t.Fatalf("expected merged line, got %d items", len(record.Items))
	}
	if record.Items[0].Qty != 3 {
		t.Fatalf("expected qty 3, got %d", record.Items[0].Qty)
	}
}

func TestAddItemRejections(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	seedSKU(t, conn, "OOS-1", "100", 0)
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, userID, "MISSING", 1); err == nil {
		t.Fatalf("expected not found")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.AddItem(ctx, userID, "OOS-1", 1); err == nil {
		t.Fatalf("expected out of stock conflict")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.AddItem(ctx, userID, "OOS-1", 0); err == nil {
		t.Fatalf("expected validation error for zero qty")
	}

	if _, err := svc.AddItem(ctx, userID, "OOS-1", maxLineQty+1); err == nil {
		t.Fatalf("expected validation error for oversized qty")
	}
}

func TestUpdateItemAndRemove(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	seedSKU(t, conn, "CH-KHK-32", "1299", 10)
	userID := uuid.New()
	ctx := context.Background()

	record, err := svc.AddItem(ctx, userID, "CH-KHK-32", 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := record.Items[0].ID

	record, err = svc.UpdateItem(ctx, userID, itemID, 3)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if record.Items[0].Qty != 3 {
		t.Fatalf("expected qty 3, got %d", record.Items[0].Qty)
	}
	if !record.TotalPrice.Equal(decimal.RequireFromString("3897")) {
		t.Fatalf("expected total 3897, got %s", record.TotalPrice)
	}

	// qty zero removes the line
	record, err = svc.UpdateItem(ctx, userID, itemID, 0)
	if err != nil {
		t.Fatalf("remove via update: %v", err)
	}
	if len(record.Items) != 0 {
		t.Fatalf("expected empty cart")
	}
	if !record.TotalPrice.IsZero() {
		t.Fatalf("expected zero total, got %s", record.TotalPrice)
	}

	if _, err := svc.UpdateItem(ctx, userID, uuid.New(), 1); err == nil {
		t.Fatalf("expected not found for unknown item")
	}
}

func TestClearInsideTransaction(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	seedSKU(t, conn, "SK-NVY-40", "2499", 5)
	userID := uuid.New()
	ctx := context.Background()

	record, err := svc.AddItem(ctx, userID, "SK-NVY-40", 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		return svc.Clear(ctx, tx, record.ID)
	})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}

	record, err = svc.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(record.Items) != 0 || !record.TotalPrice.IsZero() {
		t.Fatalf("expected cleared cart, got %d items total %s", len(record.Items), record.TotalPrice)
	}

	if err := svc.Clear(ctx, nil, record.ID); err == nil {
		t.Fatalf("expected error clearing without transaction")
	}
}
