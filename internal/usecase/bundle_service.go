package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendorlens/backend/internal/domain"
)

// BundleRequest lists the products of a bundle and an optional seller override
type BundleRequest struct {
	ProductIDs         []string `json:"productIds"`
	DiscountPercentage *float64 `json:"discountPercentage,omitempty"`
}

// BundleService prices and stores product bundles
type BundleService struct {
	repo    domain.CatalogRepository
	pricing *PricingEngine
	now     func() time.Time
}

// NewBundleService creates a bundle service. clock defaults to the wall clock.
func NewBundleService(repo domain.CatalogRepository, pricing *PricingEngine, clock func() time.Time) *BundleService {
	if clock == nil {
		clock = time.Now
	}
	return &BundleService{repo: repo, pricing: pricing, now: clock}
}

// Price quotes the bundle at current list prices without storing it
func (s *BundleService) Price(ctx context.Context, req BundleRequest) (*domain.Bundle, error) {
	products, err := s.loadProducts(ctx, req.ProductIDs)
	if err != nil {
		return nil, err
	}
	bundle, err := s.pricing.PriceBundle(products, req.DiscountPercentage)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Create prices and stores a bundle of at least two products
func (s *BundleService) Create(ctx context.Context, req BundleRequest) (*domain.Bundle, error) {
	if len(req.ProductIDs) < 2 {
		return nil, fmt.Errorf("%w: a bundle needs at least 2 products", domain.ErrInvalidBundle)
	}
	bundle, err := s.Price(ctx, req)
	if err != nil {
		return nil, err
	}
	bundle.ID = uuid.NewString()
	bundle.CreatedAt = s.now().UTC()
	if err := s.repo.SaveBundle(ctx, bundle); err != nil {
		return nil, fmt.Errorf("save bundle: %w", err)
	}
	return bundle, nil
}

// loadProducts fetches products in request order, rejecting duplicate ids before any lookup
func (s *BundleService) loadProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no products", domain.ErrInvalidBundle)
	}
	seen := make(map[string]bool, len(ids))
	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate product %s", domain.ErrInvalidBundle, id)
		}
		seen[id] = true
		p, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}
