package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorlens/backend/internal/domain"
)

func newTestRecommendationService(repo *MockCatalogRepository, config RecommendationServiceConfig) *RecommendationService {
	if config.Clock == nil {
		config.Clock = fixedClock
	}
	return NewRecommendationService(repo, newTestCatalogService(repo, NewMockCacheRepository()), config, nil)
}

func TestRecommendationService_Recommend(t *testing.T) {
	ctx := context.Background()

	t.Run("trending reads engagement over the trailing window", func(t *testing.T) {
		repo := NewMockCatalogRepository(catalogFixture()...)
		repo.engagement = map[string]domain.Engagement{
			"legal-1": {Views: 5, Bookmarks: 1},
			"hr-2":    {Views: 1},
		}
		service := newTestRecommendationService(repo, RecommendationServiceConfig{})

		ranked, err := service.Recommend(ctx, RecommendationRequest{Strategy: domain.StrategyTrending})
		require.NoError(t, err)
		assert.Equal(t, []string{"legal-1", "hr-2", "hr-1"}, rankedIDs(ranked))
		assert.Equal(t, fixedClock().Add(-7*24*time.Hour), repo.engagementSince)
	})

	t.Run("frequently bought together uses co-purchase counts", func(t *testing.T) {
		repo := NewMockCatalogRepository(catalogFixture()...)
		repo.coPurchase["hr-1"] = map[string]int{"legal-1": 4, "hr-2": 1}
		service := newTestRecommendationService(repo, RecommendationServiceConfig{})

		ranked, err := service.Recommend(ctx, RecommendationRequest{Strategy: domain.StrategyFrequentlyBoughtTogether, ProductID: "hr-1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"legal-1", "hr-2"}, rankedIDs(ranked))
	})

	t.Run("similar stays inside the source category", func(t *testing.T) {
		repo := NewMockCatalogRepository(catalogFixture()...)
		service := newTestRecommendationService(repo, RecommendationServiceConfig{})

		ranked, err := service.Recommend(ctx, RecommendationRequest{Strategy: domain.StrategySimilar, ProductID: "hr-1", Category: domain.CategoryLegal})
		require.NoError(t, err)
		assert.Equal(t, []string{"hr-2"}, rankedIDs(ranked))
	})

	t.Run("default limit truncates after ranking", func(t *testing.T) {
		repo := NewMockCatalogRepository(catalogFixture()...)
		service := newTestRecommendationService(repo, RecommendationServiceConfig{DefaultLimit: 2})

		ranked, err := service.Recommend(ctx, RecommendationRequest{Strategy: "new-and-notable"})
		require.NoError(t, err)
		assert.Equal(t, []string{"hr-1", "hr-2"}, rankedIDs(ranked))
	})

	t.Run("personalized excludes purchases", func(t *testing.T) {
		repo := NewMockCatalogRepository(catalogFixture()...)
		service := newTestRecommendationService(repo, RecommendationServiceConfig{})

		ranked, err := service.Recommend(ctx, RecommendationRequest{
			Strategy: domain.StrategyPersonalized,
			Buyer:    &domain.BuyerProfile{CompanySize: 30, InterestedCategories: []domain.Category{domain.CategoryLegal}},
			History:  domain.InteractionHistory{Purchased: []string{"hr-1"}},
		})
		require.NoError(t, err)
		assert.NotContains(t, rankedIDs(ranked), "hr-1")
		assert.Equal(t, "legal-1", ranked[0].Product.ID)
	})

	errorCases := []struct {
		name    string
		req     RecommendationRequest
		wantErr error
	}{
		{"unknown strategy", RecommendationRequest{Strategy: "bestsellers"}, domain.ErrUnknownStrategy},
		{"personalized without profile", RecommendationRequest{Strategy: domain.StrategyPersonalized}, domain.ErrBuyerProfileRequired},
		{"similar without source", RecommendationRequest{Strategy: domain.StrategySimilar}, domain.ErrInvalidRequest},
		{"unknown source", RecommendationRequest{Strategy: domain.StrategySimilar, ProductID: "ghost"}, domain.ErrProductNotFound},
		{"unknown category", RecommendationRequest{Strategy: domain.StrategyTrending, Category: "Gardening"}, domain.ErrInvalidCategory},
		{"negative limit", RecommendationRequest{Strategy: domain.StrategyTrending, Limit: -1}, domain.ErrInvalidRequest},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			service := newTestRecommendationService(NewMockCatalogRepository(catalogFixture()...), RecommendationServiceConfig{})
			_, err := service.Recommend(ctx, tc.req)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}
