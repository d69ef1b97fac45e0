package usecase

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vendorlens/backend/internal/domain"
	"github.com/vendorlens/backend/internal/infrastructure/logger"
)

// Fit score bands
const (
	fitBase                = 100
	fitPenaltyOver90Days   = 40
	fitPenaltyOver30Days   = 20
	fitPenaltyOver7Days    = 10
	fitAccessTokenPenalty  = 2  // per access-depth token
	fitAccessPenaltyCap    = 20 // max access-depth penalty
	fitBuyerAlignmentBonus = 5
	smallCompanyMaxSize    = 50
	largeCompanyMinSize    = 500
	fastImplementationDays = 14
	longImplementationDays = 30
)

// Feature score bands
const (
	featureBase             = 60
	completenessROI         = 5
	completenessRetention   = 5
	completenessQoQ         = 4
	completenessDemoVisual  = 3
	completenessLongDesc    = 3
	longDescriptionMinChars = 500
	highRelevanceThreshold  = 80
	highRelevanceBonusEach  = 2
	highRelevanceBonusCap   = 10
)

// Integration score bands
const (
	integrationBase          = 70
	integrationAPIBonus      = 15
	integrationInterestBonus = 10
)

// Review score constants
const (
	reviewNeutral = 50 // no reviews yet
	minRating     = 1.0
	maxRating     = 5.0
)

// Overall score weights in percent; they sum to 100
const (
	weightFitPct         = 30
	weightFeaturePct     = 25
	weightIntegrationPct = 25
	weightReviewPct      = 20
)

// deploymentFitBonus is added to the fit score per deployment model
var deploymentFitBonus = map[domain.Deployment]int{
	domain.DeploymentCloud:  10,
	domain.DeploymentHybrid: 5,
	domain.DeploymentClient: 0,
}

// deploymentIntegrationAdjustment is added to the integration score per deployment model
var deploymentIntegrationAdjustment = map[domain.Deployment]int{
	domain.DeploymentCloud:  10,
	domain.DeploymentHybrid: 5,
	domain.DeploymentClient: -10,
}

// categoryEcosystemBonus rewards categories with a broad integration ecosystem
var categoryEcosystemBonus = map[domain.Category]int{
	domain.CategoryDevTools: 10,
	domain.CategoryHR:       5,
}

// ScoreInput is everything a scoring strategy may look at
type ScoreInput struct {
	Product  *domain.Product
	Features []domain.Feature
	Reviews  domain.ReviewStats
	Buyer    *domain.BuyerProfile
}

// ScoreStrategy computes the five scores of a product. Implementations must be
// pure: identical inputs give identical scores.
type ScoreStrategy interface {
	Version() domain.ModelVersion
	Compute(in ScoreInput) domain.Score
}

// RuleBasedV1 is the banded rule scorer
type RuleBasedV1 struct{}

func (RuleBasedV1) Version() domain.ModelVersion { return domain.ModelRuleBasedV1 }

// Compute derives fit, feature, integration, review and overall scores.
// Missing optional attributes contribute nothing; it never fails.
func (r RuleBasedV1) Compute(in ScoreInput) domain.Score {
	p := in.Product
	if p == nil {
		p = &domain.Product{}
	}

	fit, fitParts := fitScore(p, in.Buyer)
	feature, featureParts := featureScore(p, in.Features)
	integration, integrationParts := integrationScore(p, in.Buyer)
	review, reviewParts := reviewScore(in.Reviews)

	return domain.Score{
		ProductID:        p.ID,
		FitScore:         fit,
		FeatureScore:     feature,
		IntegrationScore: integration,
		ReviewScore:      review,
		OverallScore:     overallScore(fit, feature, integration, review),
		Breakdown: domain.ScoreBreakdown{
			Fit:         fitParts,
			Feature:     featureParts,
			Integration: integrationParts,
			Review:      reviewParts,
			Weights: domain.ScoreWeights{
				Fit:         weightFitPct,
				Feature:     weightFeaturePct,
				Integration: weightIntegrationPct,
				Review:      weightReviewPct,
			},
		},
		ModelVersion: r.Version(),
	}
}

// ScoreEngineConfig holds configuration for the score engine
type ScoreEngineConfig struct {
	Strategy           ScoreStrategy
	Clock              func() time.Time
	EnableDebugLogging bool
}

// ScoreEngine stamps strategy output with a calculation time
type ScoreEngine struct {
	strategy           ScoreStrategy
	now                func() time.Time
	log                *logger.Logger
	enableDebugLogging bool
}

// NewScoreEngine creates a score engine, defaulting to RuleBasedV1 and the wall clock
func NewScoreEngine(config ScoreEngineConfig, log *logger.Logger) *ScoreEngine {
	strategy := config.Strategy
	if strategy == nil {
		strategy = RuleBasedV1{}
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ScoreEngine{
		strategy:           strategy,
		now:                clock,
		log:                log.With("service", "ScoreEngine"),
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// ModelVersion reports the active strategy's version tag
func (e *ScoreEngine) ModelVersion() domain.ModelVersion {
	return e.strategy.Version()
}

// ComputeScores scores a product. features overrides product.Features when non-nil.
func (e *ScoreEngine) ComputeScores(
	product *domain.Product,
	features []domain.Feature,
	reviews domain.ReviewStats,
	buyer *domain.BuyerProfile,
) domain.Score {
	if features == nil && product != nil {
		features = product.Features
	}
	score := e.strategy.Compute(ScoreInput{
		Product:  product,
		Features: features,
		Reviews:  reviews,
		Buyer:    buyer,
	})
	score.CalculatedAt = e.now().UTC()

	if e.enableDebugLogging {
		e.log.Debug("computed scores",
			"productId", score.ProductID,
			"fit", score.FitScore,
			"feature", score.FeatureScore,
			"integration", score.IntegrationScore,
			"review", score.ReviewScore,
			"overall", score.OverallScore,
			"model", score.ModelVersion)
	}
	return score
}

// fitScore rates how easily a product fits into the buyer's operation
func fitScore(p *domain.Product, buyer *domain.BuyerProfile) (int, []domain.Contribution) {
	total := fitBase
	parts := []domain.Contribution{{Factor: "base", Points: fitBase}}

	if p.ImplementationTimeDays != nil {
		days := *p.ImplementationTimeDays
		penalty := 0
		switch {
		case days > 90:
			penalty = fitPenaltyOver90Days
		case days > 30:
			penalty = fitPenaltyOver30Days
		case days > 7:
			penalty = fitPenaltyOver7Days
		}
		total -= penalty
		parts = append(parts, domain.Contribution{Factor: "implementation_time", Points: float64(-penalty)})
	}

	if bonus, ok := deploymentFitBonus[p.Deployment]; ok {
		total += bonus
		parts = append(parts, domain.Contribution{Factor: "deployment", Points: float64(bonus)})
	}

	depthPenalty := min(fitAccessPenaltyCap, fitAccessTokenPenalty*len(p.AccessDepth))
	total -= depthPenalty
	parts = append(parts, domain.Contribution{Factor: "access_depth", Points: float64(-depthPenalty)})

	if buyerFitsImplementation(buyer, p.ImplementationTimeDays) {
		total += fitBuyerAlignmentBonus
		parts = append(parts, domain.Contribution{Factor: "buyer_alignment", Points: fitBuyerAlignmentBonus})
	}

	return clampScore(float64(total)), parts
}

// buyerFitsImplementation is true when a small company meets a fast rollout
// or a large company can absorb a long one
func buyerFitsImplementation(buyer *domain.BuyerProfile, days *int) bool {
	if buyer == nil || days == nil || buyer.CompanySize <= 0 {
		return false
	}
	switch {
	case buyer.CompanySize <= smallCompanyMaxSize && *days <= fastImplementationDays:
		return true
	case buyer.CompanySize >= largeCompanyMinSize && *days > longImplementationDays:
		return true
	}
	return false
}

// featureScore rates listing completeness and feature depth
func featureScore(p *domain.Product, features []domain.Feature) (int, []domain.Contribution) {
	total := featureBase
	parts := []domain.Contribution{{Factor: "base", Points: featureBase}}

	completeness := 0
	if p.ROIPercentage != nil {
		completeness += completenessROI
	}
	if p.RetentionRate != nil {
		completeness += completenessRetention
	}
	if p.QuarterOverQuarterChangePercent != nil {
		completeness += completenessQoQ
	}
	if strings.TrimSpace(p.DemoVisualURL) != "" {
		completeness += completenessDemoVisual
	}
	if utf8.RuneCountInString(p.LongDescription) >= longDescriptionMinChars {
		completeness += completenessLongDesc
	}
	total += completeness
	parts = append(parts, domain.Contribution{Factor: "completeness", Points: float64(completeness)})

	descBonus := 0
	switch words := len(strings.Fields(p.LongDescription)); {
	case words > 200:
		descBonus = 10
	case words > 100:
		descBonus = 5
	}
	total += descBonus
	parts = append(parts, domain.Contribution{Factor: "description_length", Points: float64(descBonus)})

	countBonus := 0
	switch n := len(features); {
	case n > 20:
		countBonus = 20
	case n > 10:
		countBonus = 15
	case n > 5:
		countBonus = 10
	default:
		countBonus = n * 2
	}
	total += countBonus
	parts = append(parts, domain.Contribution{Factor: "feature_count", Points: float64(countBonus)})

	highRelevance := 0
	for _, f := range features {
		if f.RelevanceScore > highRelevanceThreshold {
			highRelevance++
		}
	}
	relevanceBonus := min(highRelevanceBonusCap, highRelevance*highRelevanceBonusEach)
	total += relevanceBonus
	parts = append(parts, domain.Contribution{Factor: "high_relevance_features", Points: float64(relevanceBonus)})

	return clampScore(float64(total)), parts
}

// integrationScore rates how easily a product plugs into an existing stack
func integrationScore(p *domain.Product, buyer *domain.BuyerProfile) (int, []domain.Contribution) {
	total := integrationBase
	parts := []domain.Contribution{{Factor: "base", Points: integrationBase}}

	if adj, ok := deploymentIntegrationAdjustment[p.Deployment]; ok {
		total += adj
		parts = append(parts, domain.Contribution{Factor: "deployment", Points: float64(adj)})
	}

	if bonus := categoryEcosystemBonus[p.Category]; bonus != 0 {
		total += bonus
		parts = append(parts, domain.Contribution{Factor: "category_ecosystem", Points: float64(bonus)})
	}

	if p.AccessDepth.HasAPI() {
		total += integrationAPIBonus
		parts = append(parts, domain.Contribution{Factor: "api_available", Points: integrationAPIBonus})
	}

	if buyer.InterestedIn(p.Category) {
		total += integrationInterestBonus
		parts = append(parts, domain.Contribution{Factor: "buyer_interest", Points: integrationInterestBonus})
	}

	return clampScore(float64(total)), parts
}

// reviewScore maps the average rating onto 0-100 and discounts thin review counts
func reviewScore(stats domain.ReviewStats) (int, []domain.Contribution) {
	if stats.Count <= 0 {
		return reviewNeutral, []domain.Contribution{{Factor: "no_reviews", Points: reviewNeutral}}
	}

	avg := math.Max(minRating, math.Min(maxRating, stats.AverageRating))
	raw := (avg - minRating) / (maxRating - minRating) * 100
	confidence := reviewConfidence(stats.Count)
	adjusted := raw * confidence

	parts := []domain.Contribution{
		{Factor: "rating", Points: raw},
		{Factor: "confidence_discount", Points: adjusted - raw},
	}
	return clampScore(adjusted), parts
}

// reviewConfidence discounts ratings backed by few reviews
func reviewConfidence(count int) float64 {
	switch {
	case count < 5:
		return 0.8
	case count < 10:
		return 0.9
	case count < 20:
		return 0.95
	default:
		return 1.0
	}
}

// overallScore is round(0.30 fit + 0.25 feature + 0.25 integration + 0.20 review),
// evaluated in integer percent so halves always round up
func overallScore(fit, feature, integration, review int) int {
	weighted := weightFitPct*fit +
		weightFeaturePct*feature +
		weightIntegrationPct*integration +
		weightReviewPct*review
	if weighted < 0 {
		return 0
	}
	return clampScore(float64((weighted + 50) / 100))
}

// clampScore rounds to the nearest integer and clamps to [0,100]
func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
