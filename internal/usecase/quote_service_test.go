package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorlens/backend/internal/domain"
)

// testClock is a settable clock shared by a service under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: fixedClock()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestQuoteService(repo *MockCatalogRepository, clock *testClock) *QuoteService {
	return NewQuoteService(repo, NewPricingEngine(PricingEngineConfig{}), clock.Now, nil)
}

func TestQuoteService_PriceLock(t *testing.T) {
	ctx := context.Background()
	repo := NewMockCatalogRepository(catalogFixture()...)
	clock := newTestClock()
	service := newTestQuoteService(repo, clock)

	quote, err := service.Request(ctx, QuoteRequest{ProductID: "hr-1", BuyerID: "buyer-1", CompanySize: 50})
	require.NoError(t, err)
	locked := quote.QuotedPriceCents
	assert.Equal(t, int64(12000), locked)
	assert.NotEmpty(t, quote.ID)
	assert.Equal(t, domain.QuotePending, quote.Status)

	repo.setPrice("hr-1", 99999)
	clock.Advance(24 * time.Hour)

	accepted, err := service.Accept(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteAccepted, accepted.Status)
	assert.Equal(t, locked, accepted.QuotedPriceCents)

	line, err := service.CartLine(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, locked, line.PriceCents)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, "hr-1", line.ProductID)
}

func TestQuoteService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("accepting twice is an invalid transition", func(t *testing.T) {
		repo := NewMockCatalogRepository(catalogFixture()...)
		service := newTestQuoteService(repo, newTestClock())
		quote, err := service.Request(ctx, QuoteRequest{ProductID: "hr-1", BuyerID: "b", CompanySize: 5})
		require.NoError(t, err)

		_, err = service.Accept(ctx, quote.ID)
		require.NoError(t, err)
		_, err = service.Reject(ctx, quote.ID)
		assert.True(t, errors.Is(err, domain.ErrInvalidQuoteTransition))
	})

	t.Run("expired quotes cannot be decided and stay pending", func(t *testing.T) {
		repo := NewMockCatalogRepository(catalogFixture()...)
		clock := newTestClock()
		service := newTestQuoteService(repo, clock)
		quote, err := service.Request(ctx, QuoteRequest{ProductID: "hr-2", BuyerID: "b", CompanySize: 5})
		require.NoError(t, err)

		clock.Advance(DefaultQuoteValidity + time.Second)
		_, err = service.Accept(ctx, quote.ID)
		assert.True(t, errors.Is(err, domain.ErrQuoteExpired))
		_, err = service.Reject(ctx, quote.ID)
		assert.True(t, errors.Is(err, domain.ErrQuoteExpired))

		assert.Equal(t, domain.QuotePending, repo.quotes[quote.ID].Status)
		read, err := service.Get(ctx, quote.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteExpired, read.Status)
	})

	t.Run("a quote is still valid at the last instant of its window", func(t *testing.T) {
		repo := NewMockCatalogRepository(catalogFixture()...)
		clock := newTestClock()
		service := newTestQuoteService(repo, clock)
		quote, err := service.Request(ctx, QuoteRequest{ProductID: "hr-2", BuyerID: "b", CompanySize: 5})
		require.NoError(t, err)

		clock.Advance(DefaultQuoteValidity)
		_, err = service.Reject(ctx, quote.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteRejected, repo.quotes[quote.ID].Status)
	})

	t.Run("cart line requires acceptance", func(t *testing.T) {
		repo := NewMockCatalogRepository(catalogFixture()...)
		service := newTestQuoteService(repo, newTestClock())
		quote, err := service.Request(ctx, QuoteRequest{ProductID: "hr-2", BuyerID: "b", CompanySize: 5})
		require.NoError(t, err)

		_, err = service.CartLine(ctx, quote.ID)
		assert.True(t, errors.Is(err, domain.ErrQuoteNotAccepted))
	})

	t.Run("unknown quote", func(t *testing.T) {
		service := newTestQuoteService(NewMockCatalogRepository(), newTestClock())
		_, err := service.Accept(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrQuoteNotFound))
		_, err = service.Get(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrQuoteNotFound))
	})
}

func TestQuoteService_RequestValidation(t *testing.T) {
	ctx := context.Background()
	service := newTestQuoteService(NewMockCatalogRepository(catalogFixture()...), newTestClock())

	tests := []struct {
		name    string
		req     QuoteRequest
		wantErr error
	}{
		{"missing product", QuoteRequest{BuyerID: "b", CompanySize: 5}, domain.ErrInvalidRequest},
		{"missing buyer", QuoteRequest{ProductID: "hr-1", CompanySize: 5}, domain.ErrInvalidRequest},
		{"unknown product", QuoteRequest{ProductID: "ghost", BuyerID: "b", CompanySize: 5}, domain.ErrProductNotFound},
		{"zero company size", QuoteRequest{ProductID: "hr-1", BuyerID: "b"}, domain.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Request(ctx, tt.req)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
