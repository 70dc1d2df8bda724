package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListProducts(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Variants.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})

	if filters.OnlyActive {
		qb = qb.Where("is_active = ?", true)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		qb = qb.Where("LOWER(name) LIKE ?", like)
	}
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := qb.Order("created_at DESC, id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &ProductList{Products: rows}
	if len(rows) > limit {
		list.Products = rows[:limit]
		last := list.Products[len(list.Products)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Variants.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Variants.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("slug = ?", slug).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ResolveSKU(ctx context.Context, skuCode string) (*ResolvedSKU, error) {
	code := strings.TrimSpace(skuCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku code required")
	}

	var sku models.SKUOption
	if err := r.db.WithContext(ctx).Where("sku = ?", code).First(&sku).Error; err != nil {
		return nil, err
	}

	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id = ?", sku.VariantID).First(&variant).Error; err != nil {
		return nil, err
	}

	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", variant.ProductID).First(&product).Error; err != nil {
		return nil, err
	}

	return &ResolvedSKU{SKU: sku, Variant: variant, Product: product}, nil
}

// ConditionalDecrementStock deducts qty atomically and reports whether the
// row had enough stock. A false return with nil error means another checkout
// won the race; callers roll back their transaction.
func (r *repository) ConditionalDecrementStock(ctx context.Context, skuID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := r.db.WithContext(ctx).
		Model(&models.SKUOption{}).
		Where("id = ? AND stock >= ?", skuID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// distinguish missing sku from exhausted stock
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.SKUOption{}).Where("id = ?", skuID).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, gorm.ErrRecordNotFound
		}
		return false, nil
	}
	return true, nil
}

// RestockSKU returns qty units to the sku, used by cancellations and expiry.
func (r *repository) RestockSKU(ctx context.Context, skuID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := r.db.WithContext(ctx).
		Model(&models.SKUOption{}).
		Where("id = ?", skuID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether err is the repository's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
