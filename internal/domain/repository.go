package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque encoded bytes so memory and Redis backends behave the same.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductFilter narrows a product listing
type ProductFilter struct {
	Category Category
}

// CatalogRepository is the catalog platform as seen by the engine: read access to
// products, features and reviews, plus write access for derived snapshots.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	ReviewStats(ctx context.Context, productIDs []string) (map[string]ReviewStats, error)

	SaveScore(ctx context.Context, score *Score) error
	GetScore(ctx context.Context, productID string) (*Score, error)

	SaveBundle(ctx context.Context, bundle *Bundle) error

	SaveQuote(ctx context.Context, quote *Quote) error
	GetQuote(ctx context.Context, id string) (*Quote, error)
	UpdateQuoteStatus(ctx context.Context, quote *Quote) error

	// CoPurchaseCounts counts, per other product, the historical orders that
	// contained both that product and productID.
	CoPurchaseCounts(ctx context.Context, productID string) (map[string]int, error)
	// EngagementSince aggregates interactions recorded at or after since.
	EngagementSince(ctx context.Context, since time.Time) (map[string]Engagement, error)
}

// ComparisonStore holds per-session comparison selections.
// Update runs fn against a private copy and commits it only when fn returns nil,
// serializing concurrent updates of the same session.
type ComparisonStore interface {
	Get(ctx context.Context, sessionID string) (*ComparisonSelection, error)
	Update(ctx context.Context, sessionID string, fn func(sel *ComparisonSelection) error) (*ComparisonSelection, error)
	Clear(ctx context.Context, sessionID string) error
}
