package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/pkg/db/models"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/pagination"
)

// Service exposes read operations for the storefront catalog.
type Service interface {
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
}

type service struct {
	repo Repository
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error) {
	filters.OnlyActive = true
	return s.repo.ListProducts(ctx, params, filters)
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug required")
	}
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}
