// Package sqlite provides the SQLite-backed catalog repository.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vendorlens/backend/internal/domain"
	"github.com/vendorlens/backend/internal/infrastructure/sqlite/migrations"
)

// Store persists the catalog, derived scores, bundles and quotes in SQLite
type Store struct {
	db *sql.DB

	mu       sync.RWMutex
	onChange []ProductChangeFunc
}

// ProductChangeFunc is called after a committed write that can change a product's score
type ProductChangeFunc func(ctx context.Context, productID string)

var _ domain.CatalogRepository = (*Store)(nil)

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Open opens the database at path and applies the embedded migrations
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OnProductChange registers fn to run after product or review writes commit
func (s *Store) OnProductChange(fn ProductChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Store) productChanged(ctx context.Context, productID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.onChange {
		fn(ctx, productID)
	}
}

const productColumns = `id, name, short_description, long_description, price_cents, category,
	implementation_time_days, deployment, access_depth, roi_percentage, retention_rate,
	qoq_change_percent, demo_visual_url, is_featured, is_new, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p           domain.Product
		category    string
		deployment  string
		accessDepth string
		implDays    sql.NullInt64
		roi         sql.NullFloat64
		retention   sql.NullFloat64
		qoq         sql.NullFloat64
		createdAt   int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.ShortDescription, &p.LongDescription, &p.PriceCents, &category,
		&implDays, &deployment, &accessDepth, &roi, &retention,
		&qoq, &p.DemoVisualURL, &p.IsFeatured, &p.IsNew, &createdAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.Category = domain.Category(category)
	p.Deployment = domain.Deployment(deployment)
	p.AccessDepth = domain.ParseAccessDepth(accessDepth)
	if implDays.Valid {
		days := int(implDays.Int64)
		p.ImplementationTimeDays = &days
	}
	p.ROIPercentage = nullFloatPtr(roi)
	p.RetentionRate = nullFloatPtr(retention)
	p.QuarterOverQuarterChangePercent = nullFloatPtr(qoq)
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// GetProduct loads one product with its features
func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}

	features, err := s.featuresFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	p.Features = features[id]
	return &p, nil
}

// ListProducts returns the products matching filter, ordered by id
func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if filter.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(filter.Category))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products []domain.Product
		ids      []string
	)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	features, err := s.featuresFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Features = features[products[i].ID]
	}
	return products, nil
}

func (s *Store) featuresFor(ctx context.Context, productIDs []string) (map[string][]domain.Feature, error) {
	out := make(map[string][]domain.Feature, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, name, description, relevance_score, category, display_order
		 FROM features WHERE product_id IN (`+placeholders(len(productIDs))+`)
		 ORDER BY product_id, display_order, name`,
		stringArgs(productIDs)...)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID string
			f         domain.Feature
		)
		if err := rows.Scan(&productID, &f.Name, &f.Description, &f.RelevanceScore, &f.Category, &f.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		out[productID] = append(out[productID], f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return out, nil
}

// ReviewStats aggregates review ratings per product. Products without reviews are absent.
func (s *Store) ReviewStats(ctx context.Context, productIDs []string) (map[string]domain.ReviewStats, error) {
	out := make(map[string]domain.ReviewStats, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, AVG(rating), COUNT(*) FROM reviews
		 WHERE product_id IN (`+placeholders(len(productIDs))+`)
		 GROUP BY product_id`,
		stringArgs(productIDs)...)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			stats domain.ReviewStats
		)
		if err := rows.Scan(&id, &stats.AverageRating, &stats.Count); err != nil {
			return nil, fmt.Errorf("scan review stats: %w", err)
		}
		out[id] = stats
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review stats: %w", err)
	}
	return out, nil
}

// SaveScore stores the latest score of a product, replacing any previous one
func (s *Store) SaveScore(ctx context.Context, score *domain.Score) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return fmt.Errorf("encode score breakdown: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scores (product_id, fit_score, feature_score, integration_score, review_score,
		   overall_score, breakdown_json, model_version, calculated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (product_id) DO UPDATE SET
		   fit_score = excluded.fit_score,
		   feature_score = excluded.feature_score,
		   integration_score = excluded.integration_score,
		   review_score = excluded.review_score,
		   overall_score = excluded.overall_score,
		   breakdown_json = excluded.breakdown_json,
		   model_version = excluded.model_version,
		   calculated_at = excluded.calculated_at`,
		score.ProductID, score.FitScore, score.FeatureScore, score.IntegrationScore, score.ReviewScore,
		score.OverallScore, string(breakdown), string(score.ModelVersion), toMillis(score.CalculatedAt))
	if err != nil {
		return fmt.Errorf("save score %s: %w", score.ProductID, err)
	}
	return nil
}

// GetScore loads the stored score of a product
func (s *Store) GetScore(ctx context.Context, productID string) (*domain.Score, error) {
	var (
		score        domain.Score
		breakdown    string
		modelVersion string
		calculatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT product_id, fit_score, feature_score, integration_score, review_score,
		   overall_score, breakdown_json, model_version, calculated_at
		 FROM scores WHERE product_id = ?`, productID,
	).Scan(&score.ProductID, &score.FitScore, &score.FeatureScore, &score.IntegrationScore, &score.ReviewScore,
		&score.OverallScore, &breakdown, &modelVersion, &calculatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no score for %s", domain.ErrProductNotFound, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("get score %s: %w", productID, err)
	}
	if err := json.Unmarshal([]byte(breakdown), &score.Breakdown); err != nil {
		return nil, fmt.Errorf("decode score breakdown: %w", err)
	}
	score.ModelVersion = domain.ModelVersion(modelVersion)
	score.CalculatedAt = fromMillis(calculatedAt)
	return &score, nil
}

// SaveBundle inserts a priced bundle
func (s *Store) SaveBundle(ctx context.Context, bundle *domain.Bundle) error {
	ids, err := json.Marshal(bundle.ProductIDs)
	if err != nil {
		return fmt.Errorf("encode bundle products: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bundles (id, product_ids_json, discount_percentage, discount_overridden,
		   total_price_cents, discounted_price_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bundle.ID, string(ids), bundle.DiscountPercentage, boolInt(bundle.DiscountOverridden),
		bundle.TotalPriceCents, bundle.DiscountedPriceCents, toMillis(bundle.CreatedAt))
	if err != nil {
		return fmt.Errorf("save bundle %s: %w", bundle.ID, err)
	}
	return nil
}

// SaveQuote inserts a newly issued quote
func (s *Store) SaveQuote(ctx context.Context, quote *domain.Quote) error {
	requirements, err := json.Marshal(quote.Requirements)
	if err != nil {
		return fmt.Errorf("encode quote requirements: %w", err)
	}
	breakdown, err := json.Marshal(quote.Breakdown)
	if err != nil {
		return fmt.Errorf("encode quote breakdown: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quotes (id, product_id, buyer_id, company_size, requirements_json,
		   quoted_price_cents, breakdown_json, status, issued_at, valid_until, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quote.ID, quote.ProductID, quote.BuyerID, quote.CompanySize, string(requirements),
		quote.QuotedPriceCents, string(breakdown), string(quote.Status),
		toMillis(quote.IssuedAt), toMillis(quote.ValidUntil), nullMillis(quote.DecidedAt))
	if err != nil {
		return fmt.Errorf("save quote %s: %w", quote.ID, err)
	}
	return nil
}

// GetQuote loads a quote by id with its stored status
func (s *Store) GetQuote(ctx context.Context, id string) (*domain.Quote, error) {
	var (
		q            domain.Quote
		requirements string
		breakdown    string
		status       string
		issuedAt     int64
		validUntil   int64
		decidedAt    sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, product_id, buyer_id, company_size, requirements_json,
		   quoted_price_cents, breakdown_json, status, issued_at, valid_until, decided_at
		 FROM quotes WHERE id = ?`, id,
	).Scan(&q.ID, &q.ProductID, &q.BuyerID, &q.CompanySize, &requirements,
		&q.QuotedPriceCents, &breakdown, &status, &issuedAt, &validUntil, &decidedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuoteNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get quote %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(requirements), &q.Requirements); err != nil {
		return nil, fmt.Errorf("decode quote requirements: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdown), &q.Breakdown); err != nil {
		return nil, fmt.Errorf("decode quote breakdown: %w", err)
	}
	q.Status = domain.QuoteStatus(status)
	q.IssuedAt = fromMillis(issuedAt)
	q.ValidUntil = fromMillis(validUntil)
	if decidedAt.Valid {
		t := fromMillis(decidedAt.Int64)
		q.DecidedAt = &t
	}
	return &q, nil
}

// UpdateQuoteStatus persists a decision. Only pending quotes can change, so two
// racing decisions on the same quote cannot both succeed.
func (s *Store) UpdateQuoteStatus(ctx context.Context, quote *domain.Quote) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quotes SET status = ?, decided_at = ? WHERE id = ? AND status = ?`,
		string(quote.Status), nullMillis(quote.DecidedAt), quote.ID, string(domain.QuotePending))
	if err != nil {
		return fmt.Errorf("update quote %s: %w", quote.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quote %s: %w", quote.ID, err)
	}
	if n == 1 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM quotes WHERE id = ?`, quote.ID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrQuoteNotFound, quote.ID)
	}
	if err != nil {
		return fmt.Errorf("update quote %s: %w", quote.ID, err)
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidQuoteTransition, status, quote.Status)
}

// CoPurchaseCounts counts orders containing both productID and each other product
func (s *Store) CoPurchaseCounts(ctx context.Context, productID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT other.product_id, COUNT(DISTINCT other.order_id)
		 FROM order_items src
		 JOIN order_items other ON other.order_id = src.order_id AND other.product_id <> src.product_id
		 WHERE src.product_id = ?
		 GROUP BY other.product_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("co-purchase counts %s: %w", productID, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan co-purchase count: %w", err)
		}
		out[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate co-purchase counts: %w", err)
	}
	return out, nil
}

// EngagementSince aggregates interactions recorded at or after since
func (s *Store) EngagementSince(ctx context.Context, since time.Time) (map[string]domain.Engagement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, kind, COUNT(*) FROM engagement
		 WHERE recorded_at >= ?
		 GROUP BY product_id, kind`, toMillis(since))
	if err != nil {
		return nil, fmt.Errorf("engagement since: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Engagement)
	for rows.Next() {
		var (
			id    string
			kind  string
			count int
		)
		if err := rows.Scan(&id, &kind, &count); err != nil {
			return nil, fmt.Errorf("scan engagement: %w", err)
		}
		e := out[id]
		switch domain.EngagementKind(kind) {
		case domain.EngagementView:
			e.Views += count
		case domain.EngagementBookmark:
			e.Bookmarks += count
		case domain.EngagementPurchase:
			e.Purchases += count
		}
		out[id] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engagement: %w", err)
	}
	return out, nil
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
