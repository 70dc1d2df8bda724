package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/internal/catalog"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
)

const maxLineQty = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the per-user persistent cart. Every mutation recomputes
// the derived cart total in the same transaction.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error)
	AddItem(ctx context.Context, userID uuid.UUID, skuCode string, qty int) (*models.CartRecord, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error)
	Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalogRepo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	record, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return s.repo.Create(ctx, &models.CartRecord{UserID: userID, TotalPrice: decimal.Zero})
		}
		return nil, err
	}
	return record, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, skuCode string, qty int) (*models.CartRecord, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if qty > maxLineQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit")
	}

	record, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	resolved, err := s.catalog.ResolveSKU(ctx, skuCode)
	if err != nil {
		if catalog.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found")
		}
		return nil, err
	}
	if !resolved.Product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found")
	}
	if resolved.SKU.Stock <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku is out of stock")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, ferr := repo.FindItemBySKU(ctx, record.ID, resolved.SKU.SKU)
		switch {
		case ferr == nil:
			newQty := existing.Qty + qty
			if newQty > maxLineQty {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit")
			}
			if uerr := repo.UpdateItemQty(ctx, existing.ID, newQty); uerr != nil {
				return uerr
			}
		case ferr == gorm.ErrRecordNotFound:
			item := &models.CartItem{
				CartID:    record.ID,
				ProductID: resolved.Product.ID,
				SKUCode:   resolved.SKU.SKU,
				Size:      resolved.SKU.Size,
				Color:     resolved.Variant.Color,
				Qty:       qty,
				UnitPrice: resolved.SKU.Price,
			}
			if cerr := repo.CreateItem(ctx, item); cerr != nil {
				return cerr
			}
		default:
			return ferr
		}

		return s.recomputeTotal(ctx, repo, record.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByUser(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.CartRecord, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if qty > maxLineQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit")
	}

	record, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, ferr := repo.FindItem(ctx, record.ID, itemID)
		if ferr != nil {
			if ferr == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return ferr
		}

		if qty == 0 {
			if derr := repo.DeleteItem(ctx, item.ID); derr != nil {
				return derr
			}
		} else if uerr := repo.UpdateItemQty(ctx, item.ID, qty); uerr != nil {
			return uerr
		}

		return s.recomputeTotal(ctx, repo, record.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByUser(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error) {
	return s.UpdateItem(ctx, userID, itemID, 0)
}

// Clear wipes the cart inside the caller's transaction. Checkout uses it so
// a failed order placement leaves the cart untouched.
func (s *service) Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "clear requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	if err := repo.DeleteItemsByCart(ctx, cartID); err != nil {
		return err
	}
	return repo.UpdateTotal(ctx, cartID, decimal.Zero.String())
}

func (s *service) recomputeTotal(ctx context.Context, repo Repository, cartID uuid.UUID) error {
	items, err := repo.ListItemsByCart(ctx, cartID)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return repo.UpdateTotal(ctx, cartID, total.Round(2).String())
}
