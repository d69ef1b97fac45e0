package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vendorlens/backend/internal/domain"
	"github.com/vendorlens/backend/internal/infrastructure/logger"
)

// CatalogServiceConfig holds configuration for the catalog service
type CatalogServiceConfig struct {
	CacheTTL     time.Duration
	BatchWorkers int
}

// CatalogService scores catalog products with caching and persists score snapshots
type CatalogService struct {
	repo     domain.CatalogRepository
	cache    domain.CacheRepository
	engine   *ScoreEngine
	log      *logger.Logger
	cacheTTL time.Duration
	workers  int
}

// RecomputeSummary reports the outcome of a batch recompute
type RecomputeSummary struct {
	Products     int                 `json:"products"`
	ModelVersion domain.ModelVersion `json:"modelVersion"`
	Duration     time.Duration       `json:"durationNs"`
}

// NewCatalogService creates a new catalog service with dependencies
func NewCatalogService(
	repo domain.CatalogRepository,
	cache domain.CacheRepository,
	engine *ScoreEngine,
	config CatalogServiceConfig,
	log *logger.Logger,
) *CatalogService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}
	workers := config.BatchWorkers
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &CatalogService{
		repo:     repo,
		cache:    cache,
		engine:   engine,
		log:      log.With("service", "CatalogService"),
		cacheTTL: cacheTTL,
		workers:  workers,
	}
}

// Engine exposes the score engine
func (s *CatalogService) Engine() *ScoreEngine {
	return s.engine
}

// ScoreProduct scores one product.
// Flow without buyer: check cache -> load product and reviews -> compute -> persist -> cache.
// Buyer-specific scores depend on the request and are always computed fresh.
func (s *CatalogService) ScoreProduct(ctx context.Context, productID string, buyer *domain.BuyerProfile) (*domain.Score, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}

	cacheKey := s.cacheKey(productID)
	if buyer == nil {
		if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
			return cached, nil
		}
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.ReviewStats(ctx, []string{productID})
	if err != nil {
		return nil, fmt.Errorf("load review stats: %w", err)
	}

	score := s.engine.ComputeScores(product, nil, stats[productID], buyer)
	if buyer != nil {
		return &score, nil
	}

	if err := s.repo.SaveScore(ctx, &score); err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}
	if err := s.setInCache(ctx, cacheKey, &score); err != nil {
		// Don't fail the request if caching fails
		s.log.Warn("failed to cache score", "productId", productID, "error", err)
	}
	return &score, nil
}

// RecomputeAll rescores every product in parallel, bounded by the configured
// worker count. Each product is independent; the first failure cancels the rest.
func (s *CatalogService) RecomputeAll(ctx context.Context) (*RecomputeSummary, error) {
	start := time.Now()

	products, err := s.repo.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	stats, err := s.repo.ReviewStats(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load review stats: %w", err)
	}

	var done int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range products {
		product := &products[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score := s.engine.ComputeScores(product, nil, stats[product.ID], nil)
			if err := s.repo.SaveScore(gctx, &score); err != nil {
				return fmt.Errorf("save score %s: %w", product.ID, err)
			}
			s.InvalidateScore(gctx, product.ID)
			atomic.AddInt64(&done, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &RecomputeSummary{
		Products:     int(done),
		ModelVersion: s.engine.ModelVersion(),
		Duration:     time.Since(start),
	}
	s.log.Info("recomputed scores", "products", summary.Products, "model", summary.ModelVersion, "duration", summary.Duration)
	return summary, nil
}

// InvalidateScore drops the cached anonymous score of a product so the next read
// recomputes it. Failures are logged; the entry still expires with the cache TTL.
func (s *CatalogService) InvalidateScore(ctx context.Context, productID string) {
	if err := s.cache.Delete(ctx, s.cacheKey(productID)); err != nil {
		s.log.Warn("failed to invalidate cached score", "productId", productID, "error", err)
	}
}

// ScoreCandidates turns products into rank candidates carrying fresh scores and review stats
func (s *CatalogService) ScoreCandidates(ctx context.Context, products []domain.Product, buyer *domain.BuyerProfile) ([]RankCandidate, error) {
	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	stats, err := s.repo.ReviewStats(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load review stats: %w", err)
	}

	out := make([]RankCandidate, len(products))
	for i := range products {
		score := s.engine.ComputeScores(&products[i], nil, stats[products[i].ID], buyer)
		out[i] = RankCandidate{
			Product: products[i],
			Score:   &score,
			Reviews: stats[products[i].ID],
		}
	}
	return out, nil
}

// cacheKey is "score:{modelVersion}:{productID}" so a strategy change never reads stale entries
func (s *CatalogService) cacheKey(productID string) string {
	return fmt.Sprintf("score:%s:%s", s.engine.ModelVersion(), productID)
}

// getFromCache retrieves a score from cache
func (s *CatalogService) getFromCache(ctx context.Context, key string) (*domain.Score, error) {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.log.Warn("score cache read failed", "key", key, "error", err)
		}
		return nil, err
	}
	var score domain.Score
	if err := json.Unmarshal(value, &score); err != nil {
		return nil, fmt.Errorf("decode cached score: %w", err)
	}
	return &score, nil
}

// setInCache stores a score in cache
func (s *CatalogService) setInCache(ctx context.Context, key string, score *domain.Score) error {
	data, err := json.Marshal(score)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}
