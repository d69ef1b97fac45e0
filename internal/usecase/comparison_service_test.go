package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorlens/backend/internal/domain"
)

// MockComparisonStore is a mutex-guarded implementation of domain.ComparisonStore
type MockComparisonStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.ComparisonSelection
	updates  int
}

func NewMockComparisonStore() *MockComparisonStore {
	return &MockComparisonStore{sessions: make(map[string]*domain.ComparisonSelection)}
}

func (m *MockComparisonStore) Get(ctx context.Context, sessionID string) (*domain.ComparisonSelection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID].Clone(), nil
}

func (m *MockComparisonStore) Update(ctx context.Context, sessionID string, fn func(sel *domain.ComparisonSelection) error) (*domain.ComparisonSelection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	working := m.sessions[sessionID].Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	m.sessions[sessionID] = working
	return working.Clone(), nil
}

func (m *MockComparisonStore) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func comparisonCatalog() []domain.Product {
	var out []domain.Product
	for i := 1; i <= 5; i++ {
		out = append(out, domain.Product{ID: fmt.Sprintf("hr-%d", i), Category: domain.CategoryHR})
	}
	out = append(out, domain.Product{ID: "legal-1", Category: domain.CategoryLegal})
	return out
}

func TestComparisonService_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("adds and reports the snapshot", func(t *testing.T) {
		service := NewComparisonService(NewMockCatalogRepository(comparisonCatalog()...), NewMockComparisonStore(), nil)
		snap, err := service.Add(ctx, "s-1", "hr", "hr-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ComparisonAdded, snap.Action)
		assert.Equal(t, domain.CategoryHR, snap.Active)
		require.Len(t, snap.Categories, 1)
		assert.Equal(t, []string{"hr-1"}, snap.Categories[0].ProductIDs)
	})

	t.Run("full category returns the unchanged snapshot with a message", func(t *testing.T) {
		service := NewComparisonService(NewMockCatalogRepository(comparisonCatalog()...), NewMockComparisonStore(), nil)
		for _, id := range []string{"hr-1", "hr-2", "hr-3"} {
			_, err := service.Add(ctx, "s-1", "HR", id)
			require.NoError(t, err)
		}

		snap, err := service.Add(ctx, "s-1", "HR", "hr-4")
		assert.True(t, errors.Is(err, domain.ErrComparisonFull))
		require.NotNil(t, snap)
		assert.True(t, snap.Categories[0].Full)
		assert.Equal(t, []string{"hr-1", "hr-2", "hr-3"}, snap.Categories[0].ProductIDs)
		assert.Contains(t, snap.Message, "up to 3 products in HR")
	})

	t.Run("validation happens before the store is touched", func(t *testing.T) {
		store := NewMockComparisonStore()
		service := NewComparisonService(NewMockCatalogRepository(comparisonCatalog()...), store, nil)

		_, err := service.Add(ctx, "s-1", "Legal", "hr-1")
		assert.True(t, errors.Is(err, domain.ErrInvalidCategory))
		_, err = service.Add(ctx, "s-1", "Gardening", "hr-1")
		assert.True(t, errors.Is(err, domain.ErrInvalidCategory))
		_, err = service.Add(ctx, "s-1", "HR", "ghost")
		assert.True(t, errors.Is(err, domain.ErrProductNotFound))
		_, err = service.Add(ctx, "", "HR", "hr-1")
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

		assert.Zero(t, store.updates)
	})
}

func TestComparisonService_RemoveToggleAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewMockComparisonStore()
	service := NewComparisonService(NewMockCatalogRepository(comparisonCatalog()...), store, nil)

	_, err := service.Add(ctx, "s-1", "HR", "hr-1")
	require.NoError(t, err)
	_, err = service.Toggle(ctx, "s-1", "Legal", "legal-1")
	require.NoError(t, err)

	snap, err := service.Remove(ctx, "s-1", "HR", "hr-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ComparisonRemoved, snap.Action)
	assert.Equal(t, domain.CategoryLegal, snap.Active)

	snap, err = service.SetActiveCategory(ctx, "s-1", "marketing")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryMarketing, snap.Active)

	snap, err = service.Toggle(ctx, "s-1", "Legal", "legal-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ComparisonRemoved, snap.Action)
	assert.Empty(t, snap.Categories)

	_, err = service.Add(ctx, "s-1", "HR", "hr-2")
	require.NoError(t, err)
	snap, err = service.Clear(ctx, "s-1", "")
	require.NoError(t, err)
	assert.Empty(t, snap.Categories)

	got, err := service.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, got.Categories)
	assert.Equal(t, domain.Category(""), got.Active)
}

func TestComparisonService_ConcurrentAddsRespectCap(t *testing.T) {
	ctx := context.Background()
	store := NewMockComparisonStore()
	service := NewComparisonService(NewMockCatalogRepository(comparisonCatalog()...), store, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	full := 0
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := service.Add(ctx, "shared", "HR", id)
			if errors.Is(err, domain.ErrComparisonFull) {
				mu.Lock()
				full++
				mu.Unlock()
			}
		}(fmt.Sprintf("hr-%d", i))
	}
	wg.Wait()

	snap, err := service.Get(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, snap.Categories, 1)
	assert.Len(t, snap.Categories[0].ProductIDs, domain.MaxComparisonItems)
	assert.Equal(t, 2, full)
}
