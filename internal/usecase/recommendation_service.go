package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/vendorlens/backend/internal/domain"
	"github.com/vendorlens/backend/internal/infrastructure/logger"
)

// RecommendationRequest is one recommendation query
type RecommendationRequest struct {
	Strategy  domain.Strategy           `json:"strategy"`
	ProductID string                    `json:"productId,omitempty"`
	Category  domain.Category           `json:"category,omitempty"`
	Buyer     *domain.BuyerProfile      `json:"buyerProfile,omitempty"`
	History   domain.InteractionHistory `json:"history"`
	Limit     int                       `json:"limit,omitempty"`
}

// RecommendationServiceConfig holds configuration for the recommendation service
type RecommendationServiceConfig struct {
	DefaultLimit       int
	TrendingWindow     time.Duration
	RecencyWindow      time.Duration
	Clock              func() time.Time
	EnableDebugLogging bool
}

// RecommendationService loads candidates from the catalog and ranks them
type RecommendationService struct {
	repo               domain.CatalogRepository
	catalog            *CatalogService
	ranker             *Ranker
	log                *logger.Logger
	defaultLimit       int
	trendingWindow     time.Duration
	recencyWindow      time.Duration
	now                func() time.Time
	enableDebugLogging bool
}

// NewRecommendationService creates a recommendation service with dependencies
func NewRecommendationService(
	repo domain.CatalogRepository,
	catalog *CatalogService,
	config RecommendationServiceConfig,
	log *logger.Logger,
) *RecommendationService {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 10
	}
	if config.TrendingWindow <= 0 {
		config.TrendingWindow = 7 * 24 * time.Hour
	}
	if config.RecencyWindow <= 0 {
		config.RecencyWindow = defaultRecencyWindow
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RecommendationService{
		repo:               repo,
		catalog:            catalog,
		ranker:             NewRanker(),
		log:                log.With("service", "RecommendationService"),
		defaultLimit:       config.DefaultLimit,
		trendingWindow:     config.TrendingWindow,
		recencyWindow:      config.RecencyWindow,
		now:                config.Clock,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Recommend ranks catalog products for the requested strategy
func (s *RecommendationService) Recommend(ctx context.Context, req RecommendationRequest) ([]domain.RankedProduct, error) {
	strategy, err := domain.ParseStrategy(string(req.Strategy))
	if err != nil {
		return nil, err
	}
	if strategy == domain.StrategyPersonalized && req.Buyer == nil {
		return nil, domain.ErrBuyerProfileRequired
	}
	if strategy.NeedsSource() && req.ProductID == "" {
		return nil, fmt.Errorf("%w: %s needs productId", domain.ErrInvalidRequest, strategy)
	}
	if req.Category != "" && !req.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, req.Category)
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidRequest)
	}

	now := s.now()
	rc := RankContext{
		Buyer:           req.Buyer,
		History:         req.History,
		SourceProductID: req.ProductID,
		Now:             now,
		RecencyWindow:   s.recencyWindow,
		Limit:           req.Limit,
	}
	if rc.Limit == 0 {
		rc.Limit = s.defaultLimit
	}

	filter := domain.ProductFilter{Category: req.Category}
	if strategy.NeedsSource() {
		source, err := s.repo.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if strategy == domain.StrategySimilar {
			filter.Category = source.Category
		}
	}

	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	candidates, err := s.catalog.ScoreCandidates(ctx, products, req.Buyer)
	if err != nil {
		return nil, err
	}

	switch strategy {
	case domain.StrategyFrequentlyBoughtTogether:
		rc.CoPurchase, err = s.repo.CoPurchaseCounts(ctx, req.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load co-purchase counts: %w", err)
		}
	case domain.StrategyTrending:
		engagement, err := s.repo.EngagementSince(ctx, now.Add(-s.trendingWindow))
		if err != nil {
			return nil, fmt.Errorf("load engagement: %w", err)
		}
		for i := range candidates {
			candidates[i].Engagement = engagement[candidates[i].Product.ID]
		}
	}

	ranked, err := s.ranker.Rank(candidates, strategy, rc)
	if err != nil {
		return nil, err
	}

	if s.enableDebugLogging {
		s.log.Debug("ranked recommendations",
			"strategy", strategy,
			"candidates", len(candidates),
			"returned", len(ranked),
			"limit", rc.Limit)
	}
	return ranked, nil
}
