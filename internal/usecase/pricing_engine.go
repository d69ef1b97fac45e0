package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorlens/backend/internal/domain"
)

// Bundle discount tiers in percent, by number of products
const (
	bundleDiscountPair  = 5
	bundleDiscountTrio  = 10
	bundleDiscountLarge = 15
)

// Quote pricing defaults
const (
	DefaultQuoteValidity              = 30 * 24 * time.Hour
	DefaultExtraFeatureSurchargeCents = 25000
	customRequirementSurchargePct     = 10
	customRequirementSurchargeCapPct  = 50
	fallbackCategoryBaseRateCents     = 50000
)

// DefaultCategoryBaseRates prices quote-only products per category, in cents
var DefaultCategoryBaseRates = map[domain.Category]int64{
	domain.CategoryHR:         50000,
	domain.CategoryLegal:      75000,
	domain.CategoryMarketing:  40000,
	domain.CategoryDevTools:   60000,
	domain.CategoryFinance:    80000,
	domain.CategorySales:      45000,
	domain.CategoryOperations: 50000,
	domain.CategorySecurity:   90000,
}

// sizeTier maps an upper company size bound to a price multiplier
type sizeTier struct {
	maxSize    int
	multiplier string
}

var companySizeTiers = []sizeTier{
	{10, "1.0"},
	{50, "1.2"},
	{200, "1.5"},
	{1000, "2.0"},
	{math.MaxInt, "3.0"},
}

// seatTier maps a minimum seat count to a per-seat rate
type seatTier struct {
	minSeats int
	rate     string
}

var seatTiers = []seatTier{
	{100, "0.70"},
	{50, "0.80"},
	{10, "0.90"},
	{1, "1.00"},
}

// PricingEngineConfig holds configuration for the pricing engine.
// A nil ExtraFeatureSurchargeCents uses the default; zero disables the surcharge.
type PricingEngineConfig struct {
	QuoteValidity              time.Duration
	ExtraFeatureSurchargeCents *int64
	CategoryBaseRates          map[domain.Category]int64
	FeatureMatch               FeatureMatchConfig
}

// PricingEngine computes bundle and quote prices. It is pure: the caller supplies
// the products and the issue time.
type PricingEngine struct {
	validity         time.Duration
	featureSurcharge decimal.Decimal
	baseRates        map[domain.Category]int64
	features         *FeatureMatcher
}

// NewPricingEngine creates a pricing engine, filling unset options with defaults
func NewPricingEngine(config PricingEngineConfig) *PricingEngine {
	if config.QuoteValidity <= 0 {
		config.QuoteValidity = DefaultQuoteValidity
	}
	surcharge := int64(DefaultExtraFeatureSurchargeCents)
	if c := config.ExtraFeatureSurchargeCents; c != nil && *c >= 0 {
		surcharge = *c
	}
	if config.CategoryBaseRates == nil {
		config.CategoryBaseRates = DefaultCategoryBaseRates
	}
	return &PricingEngine{
		validity:         config.QuoteValidity,
		featureSurcharge: decimal.NewFromInt(surcharge),
		baseRates:        config.CategoryBaseRates,
		features:         NewFeatureMatcher(config.FeatureMatch),
	}
}

// QuoteValidity is the window between issue and expiry
func (e *PricingEngine) QuoteValidity() time.Duration {
	return e.validity
}

// BundleDiscount returns the tiered discount percentage for n products
func BundleDiscount(n int) float64 {
	switch {
	case n >= 4:
		return bundleDiscountLarge
	case n == 3:
		return bundleDiscountTrio
	case n == 2:
		return bundleDiscountPair
	default:
		return 0
	}
}

// PriceBundle totals products and applies the count tier, or override when given.
// The discounted price is rounded half away from zero to whole cents.
func (e *PricingEngine) PriceBundle(products []domain.Product, override *float64) (domain.Bundle, error) {
	if len(products) == 0 {
		return domain.Bundle{}, fmt.Errorf("%w: no products", domain.ErrInvalidBundle)
	}

	ids := make([]string, 0, len(products))
	seen := make(map[string]bool, len(products))
	total := decimal.Zero
	for _, p := range products {
		if seen[p.ID] {
			return domain.Bundle{}, fmt.Errorf("%w: duplicate product %s", domain.ErrInvalidBundle, p.ID)
		}
		seen[p.ID] = true
		ids = append(ids, p.ID)
		total = total.Add(decimal.NewFromInt(p.PriceCents))
	}

	pct := BundleDiscount(len(products))
	if override != nil {
		if math.IsNaN(*override) || *override < 0 || *override > 100 {
			return domain.Bundle{}, fmt.Errorf("%w: %v", domain.ErrInvalidDiscount, *override)
		}
		pct = *override
	}

	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100)))
	discounted := total.Mul(factor).Round(0)

	return domain.Bundle{
		ProductIDs:           ids,
		DiscountPercentage:   pct,
		DiscountOverridden:   override != nil,
		TotalPriceCents:      total.IntPart(),
		DiscountedPriceCents: discounted.IntPart(),
	}, nil
}

// GenerateQuote prices product for a buyer. Steps apply in order: company size
// multiplier, extra feature surcharge, custom requirement surcharge, seat volume.
// Each step's result is rounded to whole cents before the next one.
func (e *PricingEngine) GenerateQuote(product *domain.Product, companySize int, req domain.QuoteRequirements, now time.Time) (*domain.Quote, error) {
	if product == nil {
		return nil, fmt.Errorf("%w: product is required", domain.ErrInvalidRequest)
	}
	if companySize <= 0 {
		return nil, fmt.Errorf("%w: company size must be positive", domain.ErrInvalidRequest)
	}
	if req.Seats < 0 {
		return nil, fmt.Errorf("%w: seats must not be negative", domain.ErrInvalidRequest)
	}
	if req.Seats == 0 {
		req.Seats = 1
	}

	breakdown := domain.PricingBreakdown{BaseSource: "list_price", BasePriceCents: product.PriceCents}
	if product.QuoteOnly() {
		breakdown.BaseSource = "category_rate"
		breakdown.BasePriceCents = e.baseRate(product.Category)
	}
	running := decimal.NewFromInt(breakdown.BasePriceCents)

	apply := func(step, description string, factor float64, next decimal.Decimal) {
		next = next.Round(0)
		breakdown.Steps = append(breakdown.Steps, domain.PricingStep{
			Step:         step,
			Description:  description,
			Factor:       factor,
			AmountCents:  next.Sub(running).IntPart(),
			RunningCents: next.IntPart(),
		})
		running = next
	}

	multiplier := companySizeMultiplier(companySize)
	apply("company_size",
		fmt.Sprintf("company size %d", companySize),
		multiplier.InexactFloat64(),
		running.Mul(multiplier))

	extras := e.features.Extras(product.Features, req.Features)
	apply("extra_features",
		fmt.Sprintf("%d requested features beyond the baseline", len(extras)),
		0,
		running.Add(e.featureSurcharge.Mul(decimal.NewFromInt(int64(len(extras))))))

	customPct := min(customRequirementSurchargeCapPct, customRequirementSurchargePct*countNonBlank(req.CustomRequirements))
	customFactor := decimal.NewFromInt(int64(customPct)).Div(decimal.NewFromInt(100))
	apply("custom_requirements",
		fmt.Sprintf("%d%% implementation complexity surcharge", customPct),
		customFactor.InexactFloat64(),
		running.Add(running.Mul(customFactor)))

	rate := seatRate(req.Seats)
	apply("seats",
		fmt.Sprintf("%d seats at %s per seat", req.Seats, rate.StringFixed(2)),
		rate.InexactFloat64(),
		running.Mul(decimal.NewFromInt(int64(req.Seats))).Mul(rate))

	breakdown.TotalCents = running.IntPart()
	issued := now.UTC()
	return &domain.Quote{
		ProductID:        product.ID,
		CompanySize:      companySize,
		Requirements:     req,
		QuotedPriceCents: breakdown.TotalCents,
		Breakdown:        breakdown,
		Status:           domain.QuotePending,
		IssuedAt:         issued,
		ValidUntil:       issued.Add(e.validity),
	}, nil
}

func (e *PricingEngine) baseRate(c domain.Category) int64 {
	if rate, ok := e.baseRates[c]; ok {
		return rate
	}
	return fallbackCategoryBaseRateCents
}

func companySizeMultiplier(size int) decimal.Decimal {
	for _, tier := range companySizeTiers {
		if size <= tier.maxSize {
			return decimal.RequireFromString(tier.multiplier)
		}
	}
	return decimal.RequireFromString(companySizeTiers[len(companySizeTiers)-1].multiplier)
}

func seatRate(seats int) decimal.Decimal {
	for _, tier := range seatTiers {
		if seats >= tier.minSeats {
			return decimal.RequireFromString(tier.rate)
		}
	}
	return decimal.NewFromInt(1)
}

func countNonBlank(items []string) int {
	n := 0
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}
