package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vendorlens/backend/internal/domain"
)

// UpsertProduct inserts or replaces a product together with its feature list
func (s *Store) UpsertProduct(ctx context.Context, p domain.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCategory, p.Category)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert product: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var implDays any
	if p.ImplementationTimeDays != nil {
		implDays = *p.ImplementationTimeDays
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   short_description = excluded.short_description,
		   long_description = excluded.long_description,
		   price_cents = excluded.price_cents,
		   category = excluded.category,
		   implementation_time_days = excluded.implementation_time_days,
		   deployment = excluded.deployment,
		   access_depth = excluded.access_depth,
		   roi_percentage = excluded.roi_percentage,
		   retention_rate = excluded.retention_rate,
		   qoq_change_percent = excluded.qoq_change_percent,
		   demo_visual_url = excluded.demo_visual_url,
		   is_featured = excluded.is_featured,
		   is_new = excluded.is_new,
		   created_at = excluded.created_at`,
		p.ID, p.Name, p.ShortDescription, p.LongDescription, p.PriceCents, string(p.Category),
		implDays, string(p.Deployment), p.AccessDepth.String(), floatArg(p.ROIPercentage), floatArg(p.RetentionRate),
		floatArg(p.QuarterOverQuarterChangePercent), p.DemoVisualURL, boolInt(p.IsFeatured), boolInt(p.IsNew), toMillis(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM features WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear features of %s: %w", p.ID, err)
	}
	for i, f := range p.Features {
		order := f.DisplayOrder
		if order == 0 {
			order = i
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO features (product_id, name, description, relevance_score, category, display_order)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, f.Name, f.Description, f.RelevanceScore, f.Category, order,
		); err != nil {
			return fmt.Errorf("insert feature %s/%s: %w", p.ID, f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert product %s: %w", p.ID, err)
	}
	s.productChanged(ctx, p.ID)
	return nil
}

// AddReview records one 1-5 star review
func (s *Store) AddReview(ctx context.Context, productID string, rating int, at time.Time) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating %d outside 1-5", domain.ErrInvalidRequest, rating)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (product_id, rating, created_at) VALUES (?, ?, ?)`,
		productID, rating, toMillis(at),
	); err != nil {
		return fmt.Errorf("add review for %s: %w", productID, err)
	}
	s.productChanged(ctx, productID)
	return nil
}

// RecordOrder stores a historical order and the distinct products it contained
func (s *Store) RecordOrder(ctx context.Context, orderID, buyerID string, productIDs []string, at time.Time) error {
	if strings.TrimSpace(orderID) == "" || len(productIDs) == 0 {
		return fmt.Errorf("%w: order needs an id and at least one product", domain.ErrInvalidRequest)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, buyer_id, created_at) VALUES (?, ?, ?)`,
		orderID, buyerID, toMillis(at),
	); err != nil {
		return fmt.Errorf("insert order %s: %w", orderID, err)
	}
	for _, id := range productIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO order_items (order_id, product_id) VALUES (?, ?)`,
			orderID, id,
		); err != nil {
			return fmt.Errorf("insert order item %s/%s: %w", orderID, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order %s: %w", orderID, err)
	}
	return nil
}

// RecordEngagement stores one view, bookmark or purchase event
func (s *Store) RecordEngagement(ctx context.Context, productID string, kind domain.EngagementKind, at time.Time) error {
	switch kind {
	case domain.EngagementView, domain.EngagementBookmark, domain.EngagementPurchase:
	default:
		return fmt.Errorf("%w: engagement kind %q", domain.ErrInvalidRequest, kind)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO engagement (product_id, kind, recorded_at) VALUES (?, ?, ?)`,
		productID, string(kind), toMillis(at),
	); err != nil {
		return fmt.Errorf("record engagement for %s: %w", productID, err)
	}
	return nil
}

// SeedData is the JSON layout of a catalog seed file
type SeedData struct {
	Products []domain.Product `json:"products"`
	Reviews  []struct {
		ProductID string    `json:"productId"`
		Rating    int       `json:"rating"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"reviews"`
	Orders []struct {
		ID         string    `json:"id"`
		BuyerID    string    `json:"buyerId"`
		ProductIDs []string  `json:"productIds"`
		CreatedAt  time.Time `json:"createdAt"`
	} `json:"orders"`
	Engagement []struct {
		ProductID  string                `json:"productId"`
		Kind       domain.EngagementKind `json:"kind"`
		RecordedAt time.Time             `json:"recordedAt"`
	} `json:"engagement"`
}

// LoadSeedFile reads a JSON seed file and writes its contents. Products are
// upserted; reviews, orders and engagement are appended.
func (s *Store) LoadSeedFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}
	return len(data.Products), s.Seed(ctx, data)
}

// Seed writes the given catalog data
func (s *Store) Seed(ctx context.Context, data SeedData) error {
	for _, p := range data.Products {
		if err := s.UpsertProduct(ctx, p); err != nil {
			return err
		}
	}
	for _, r := range data.Reviews {
		if err := s.AddReview(ctx, r.ProductID, r.Rating, r.CreatedAt); err != nil {
			return err
		}
	}
	for _, o := range data.Orders {
		if err := s.RecordOrder(ctx, o.ID, o.BuyerID, o.ProductIDs, o.CreatedAt); err != nil {
			return err
		}
	}
	for _, e := range data.Engagement {
		if err := s.RecordEngagement(ctx, e.ProductID, e.Kind, e.RecordedAt); err != nil {
			return err
		}
	}
	return nil
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
