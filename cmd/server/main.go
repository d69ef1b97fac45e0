package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vendorlens/backend/config"
	httpDelivery "github.com/vendorlens/backend/internal/delivery/http"
	"github.com/vendorlens/backend/internal/domain"
	"github.com/vendorlens/backend/internal/infrastructure/cache"
	"github.com/vendorlens/backend/internal/infrastructure/logger"
	"github.com/vendorlens/backend/internal/infrastructure/session"
	"github.com/vendorlens/backend/internal/infrastructure/sqlite"
	"github.com/vendorlens/backend/internal/usecase"
)

const (
	shutdownTimeout      = 15 * time.Second
	sessionSweepInterval = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("starting VendorLens backend",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"cache", cfg.Cache.Type,
		"comparisonStore", cfg.Comparison.Store)

	store, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	if err := seedCatalog(ctx, store, cfg.Database.SeedFile, log); err != nil {
		return err
	}

	clients := newRedisClients()
	defer clients.Close()

	scoreCache, err := buildCache(ctx, cfg, clients)
	if err != nil {
		return err
	}
	comparisonStore, err := buildComparisonStore(ctx, cfg, clients)
	if err != nil {
		return err
	}

	engine := usecase.NewScoreEngine(usecase.ScoreEngineConfig{
		EnableDebugLogging: cfg.Scoring.EnableDebugLogging,
	}, log)
	catalog := usecase.NewCatalogService(store, scoreCache, engine, usecase.CatalogServiceConfig{
		CacheTTL:     cfg.Cache.TTL,
		BatchWorkers: cfg.Scoring.BatchWorkers,
	}, log)
	store.OnProductChange(catalog.InvalidateScore)
	pricing := usecase.NewPricingEngine(usecase.PricingEngineConfig{
		QuoteValidity:              cfg.Pricing.QuoteValidity,
		ExtraFeatureSurchargeCents: &cfg.Pricing.ExtraFeatureSurchargeCents,
		FeatureMatch:               usecase.FeatureMatchConfig{MinCoverage: cfg.Pricing.FeatureMatchCoverage},
	})

	handler := httpDelivery.NewHandler(httpDelivery.Services{
		Catalog:    catalog,
		Comparison: usecase.NewComparisonService(store, comparisonStore, log),
		Recommendations: usecase.NewRecommendationService(store, catalog, usecase.RecommendationServiceConfig{
			DefaultLimit:       cfg.Recommendation.DefaultLimit,
			TrendingWindow:     cfg.Recommendation.TrendingWindow,
			RecencyWindow:      cfg.Recommendation.RecencyWindow,
			EnableDebugLogging: cfg.Scoring.EnableDebugLogging,
		}, log),
		Bundles: usecase.NewBundleService(store, pricing, time.Now),
		Quotes:  usecase.NewQuoteService(store, pricing, time.Now, log),
	})

	limiter := httpDelivery.NewIPRateLimiter(cfg.RateLimit.PerIP, cfg.RateLimit.Burst)
	go limiter.Run(ctx, 3*time.Minute)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           httpDelivery.SetupRouter(cfg, handler, limiter, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedCatalog loads the seed file into an empty catalog
func seedCatalog(ctx context.Context, store *sqlite.Store, path string, log *logger.Logger) error {
	if path == "" {
		return nil
	}
	existing, err := store.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		return fmt.Errorf("check catalog: %w", err)
	}
	if len(existing) > 0 {
		log.Info("catalog already populated, skipping seed", "products", len(existing))
		return nil
	}
	n, err := store.LoadSeedFile(ctx, path)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	log.Info("seeded catalog", "file", path, "products", n)
	return nil
}

// redisClients shares one client per URL between the cache and the comparison store
type redisClients map[string]*goredis.Client

func newRedisClients() redisClients {
	return make(redisClients)
}

func (r redisClients) get(ctx context.Context, url string) (*goredis.Client, error) {
	if rdb, ok := r[url]; ok {
		return rdb, nil
	}
	rdb, err := cache.NewRedisClient(ctx, url)
	if err != nil {
		return nil, err
	}
	r[url] = rdb
	return rdb, nil
}

func (r redisClients) Close() {
	for _, rdb := range r {
		_ = rdb.Close()
	}
}

func buildCache(ctx context.Context, cfg *config.Config, clients redisClients) (domain.CacheRepository, error) {
	if cfg.Cache.Type != "redis" {
		return cache.NewMemoryCache(0), nil
	}
	rdb, err := clients.get(ctx, cfg.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect score cache: %w", err)
	}
	return cache.NewRedisCache(rdb, "vendorlens:"), nil
}

func buildComparisonStore(ctx context.Context, cfg *config.Config, clients redisClients) (domain.ComparisonStore, error) {
	if cfg.Comparison.Store != "redis" {
		store := session.NewMemoryStore(cfg.Comparison.SessionTTL)
		go store.Run(ctx, sessionSweepInterval)
		return store, nil
	}
	rdb, err := clients.get(ctx, cfg.Comparison.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect comparison store: %w", err)
	}
	return session.NewRedisStore(rdb, "vendorlens:comparison:", cfg.Comparison.SessionTTL, cfg.Comparison.MaxRetries), nil
}
