package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vendorlens/backend/internal/domain"
	"github.com/vendorlens/backend/internal/infrastructure/logger"
)

// ComparisonService validates comparison requests against the catalog and applies
// them to the session's selection through the comparison store
type ComparisonService struct {
	repo    domain.CatalogRepository
	store   domain.ComparisonStore
	manager *ComparisonManager
	log     *logger.Logger
}

// NewComparisonService creates a comparison service with dependencies
func NewComparisonService(repo domain.CatalogRepository, store domain.ComparisonStore, log *logger.Logger) *ComparisonService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ComparisonService{
		repo:    repo,
		store:   store,
		manager: NewComparisonManager(),
		log:     log.With("service", "ComparisonService"),
	}
}

// Get returns the session's current selection
func (s *ComparisonService) Get(ctx context.Context, sessionID string) (*domain.ComparisonSnapshot, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	sel, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap := sel.Snapshot(sessionID)
	return &snap, nil
}

// Add selects a product for comparison. When the category is full the unchanged
// snapshot is returned together with ErrComparisonFull.
func (s *ComparisonService) Add(ctx context.Context, sessionID, category, productID string) (*domain.ComparisonSnapshot, error) {
	c, err := s.validateProduct(ctx, sessionID, category, productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, c, func(sel *domain.ComparisonSelection) (domain.ComparisonAction, error) {
		return s.manager.Add(sel, c, productID)
	})
}

// Remove deselects a product. Products no longer in the catalog can still be removed.
func (s *ComparisonService) Remove(ctx context.Context, sessionID, category, productID string) (*domain.ComparisonSnapshot, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, c, func(sel *domain.ComparisonSelection) (domain.ComparisonAction, error) {
		return s.manager.Remove(sel, c, productID)
	})
}

// Toggle removes a selected product or adds an unselected one
func (s *ComparisonService) Toggle(ctx context.Context, sessionID, category, productID string) (*domain.ComparisonSnapshot, error) {
	c, err := s.validateProduct(ctx, sessionID, category, productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, c, func(sel *domain.ComparisonSelection) (domain.ComparisonAction, error) {
		return s.manager.Toggle(sel, c, productID)
	})
}

// SetActiveCategory switches the category shown in the comparison view
func (s *ComparisonService) SetActiveCategory(ctx context.Context, sessionID, category string) (*domain.ComparisonSnapshot, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, c, func(sel *domain.ComparisonSelection) (domain.ComparisonAction, error) {
		return domain.ComparisonUnchanged, s.manager.SetActiveCategory(sel, c)
	})
}

// Clear empties one category, or the whole session when category is empty
func (s *ComparisonService) Clear(ctx context.Context, sessionID, category string) (*domain.ComparisonSnapshot, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	if category == "" {
		if err := s.store.Clear(ctx, sessionID); err != nil {
			return nil, err
		}
		snap := domain.NewComparisonSelection().Snapshot(sessionID)
		return &snap, nil
	}
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, c, func(sel *domain.ComparisonSelection) (domain.ComparisonAction, error) {
		return domain.ComparisonRemoved, s.manager.Clear(sel, c)
	})
}

// validateProduct rejects unknown products and products outside the category
// before the selection is touched
func (s *ComparisonService) validateProduct(ctx context.Context, sessionID, category, productID string) (domain.Category, error) {
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	c, err := domain.ParseCategory(category)
	if err != nil {
		return "", err
	}
	if productID == "" {
		return "", fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	if product.Category != c {
		return "", fmt.Errorf("%w: product %s belongs to %s, not %s", domain.ErrInvalidCategory, productID, product.Category, c)
	}
	return c, nil
}

func (s *ComparisonService) mutate(
	ctx context.Context,
	sessionID string,
	category domain.Category,
	fn func(sel *domain.ComparisonSelection) (domain.ComparisonAction, error),
) (*domain.ComparisonSnapshot, error) {
	var action domain.ComparisonAction
	sel, err := s.store.Update(ctx, sessionID, func(sel *domain.ComparisonSelection) error {
		var err error
		action, err = fn(sel)
		return err
	})
	if errors.Is(err, domain.ErrComparisonFull) {
		current, getErr := s.store.Get(ctx, sessionID)
		if getErr != nil {
			return nil, err
		}
		snap := current.Snapshot(sessionID)
		snap.Action = domain.ComparisonUnchanged
		snap.Message = fmt.Sprintf("You can compare up to %d products in %s. Remove one to add another.", domain.MaxComparisonItems, category)
		return &snap, err
	}
	if err != nil {
		return nil, err
	}

	snap := sel.Snapshot(sessionID)
	snap.Action = action
	return &snap, nil
}
