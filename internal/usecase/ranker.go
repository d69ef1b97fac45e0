package usecase

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/vendorlens/backend/internal/domain"
)

// Personalized ranking weights
const (
	personalizedOverallWeight = 0.6
	personalizedInterestBonus = 20.0
	personalizedRecencyMax    = 10.0
	affinityPurchasedBonus    = 15.0
	affinityBookmarkedBonus   = 10.0
	affinityViewedBonus       = 5.0
	defaultRecencyWindow      = 30 * 24 * time.Hour
)

// Similarity weights; the score vector distance is normalized by maxVectorDistance
const (
	similarityFeatureWeight = 50.0
	similarityScoreWeight   = 50.0
	maxVectorDistance       = 200.0
)

// RankCandidate is a product together with the signals the strategies read
type RankCandidate struct {
	Product    domain.Product
	Score      *domain.Score
	Reviews    domain.ReviewStats
	Engagement domain.Engagement
}

func (c *RankCandidate) overall() int {
	if c.Score == nil {
		return 0
	}
	return c.Score.OverallScore
}

// RankContext carries per-request inputs. CoPurchase maps product id to the number
// of orders shared with SourceProductID. Limit <= 0 returns every ranked candidate.
type RankContext struct {
	Buyer           *domain.BuyerProfile
	History         domain.InteractionHistory
	SourceProductID string
	CoPurchase      map[string]int
	Now             time.Time
	RecencyWindow   time.Duration
	Limit           int
}

// Ranker orders candidates for a recommendation strategy. It holds no state;
// every call recomputes the ordering from its inputs.
type Ranker struct{}

// NewRanker creates a ranker
func NewRanker() *Ranker {
	return &Ranker{}
}

type scoredCandidate struct {
	cand      *RankCandidate
	primary   float64
	secondary float64
}

// Rank orders candidates for strategy and truncates to rc.Limit
func (r *Ranker) Rank(candidates []RankCandidate, strategy domain.Strategy, rc RankContext) ([]domain.RankedProduct, error) {
	scored, err := r.score(candidates, strategy, rc)
	if err != nil {
		return nil, err
	}
	sortCandidates(scored, strategy)

	n := len(scored)
	if rc.Limit > 0 && rc.Limit < n {
		n = rc.Limit
	}
	out := make([]domain.RankedProduct, 0, n)
	for i, sc := range scored[:n] {
		out = append(out, domain.RankedProduct{
			Product: sc.cand.Product,
			Rank:    i + 1,
			Signal:  sc.primary,
			Score:   sc.cand.Score,
		})
	}
	return out, nil
}

// Seq validates the request and returns a sequence that ranks afresh each time it
// is ranged over. Callers may stop early; the limit still applies after ranking.
func (r *Ranker) Seq(candidates []RankCandidate, strategy domain.Strategy, rc RankContext) (iter.Seq[domain.RankedProduct], error) {
	if err := validateRankRequest(candidates, strategy, rc); err != nil {
		return nil, err
	}
	return func(yield func(domain.RankedProduct) bool) {
		ranked, err := r.Rank(candidates, strategy, rc)
		if err != nil {
			return
		}
		for _, rp := range ranked {
			if !yield(rp) {
				return
			}
		}
	}, nil
}

func validateRankRequest(candidates []RankCandidate, strategy domain.Strategy, rc RankContext) error {
	switch strategy {
	case domain.StrategyNewAndNotable, domain.StrategyTrending:
		return nil
	case domain.StrategyPersonalized:
		if rc.Buyer == nil {
			return domain.ErrBuyerProfileRequired
		}
		return nil
	case domain.StrategyFrequentlyBoughtTogether, domain.StrategySimilar:
		if rc.SourceProductID == "" {
			return fmt.Errorf("%w: %s needs a source product", domain.ErrInvalidRequest, strategy)
		}
		if strategy == domain.StrategySimilar && findCandidate(candidates, rc.SourceProductID) == nil {
			return fmt.Errorf("%w: %s", domain.ErrProductNotFound, rc.SourceProductID)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, strategy)
	}
}

func (r *Ranker) score(candidates []RankCandidate, strategy domain.Strategy, rc RankContext) ([]scoredCandidate, error) {
	if err := validateRankRequest(candidates, strategy, rc); err != nil {
		return nil, err
	}

	out := make([]scoredCandidate, 0, len(candidates))
	switch strategy {
	case domain.StrategyNewAndNotable:
		for i := range candidates {
			c := &candidates[i]
			out = append(out, scoredCandidate{cand: c, primary: boolScore(c.Product.IsFeatured)})
		}

	case domain.StrategyPersonalized:
		purchased := toSet(rc.History.Purchased)
		affinity := affinityByCategory(candidates, rc.History)
		window := rc.RecencyWindow
		if window <= 0 {
			window = defaultRecencyWindow
		}
		for i := range candidates {
			c := &candidates[i]
			if purchased[c.Product.ID] {
				continue
			}
			signal := personalizedOverallWeight * float64(c.overall())
			if rc.Buyer.InterestedIn(c.Product.Category) {
				signal += personalizedInterestBonus
			}
			signal += recencyBonus(c.Product.CreatedAt, rc.Now, window)
			signal += affinity[c.Product.Category]
			out = append(out, scoredCandidate{cand: c, primary: signal})
		}

	case domain.StrategyFrequentlyBoughtTogether:
		for i := range candidates {
			c := &candidates[i]
			count := rc.CoPurchase[c.Product.ID]
			if c.Product.ID == rc.SourceProductID || count <= 0 {
				continue
			}
			out = append(out, scoredCandidate{cand: c, primary: float64(count), secondary: float64(c.overall())})
		}

	case domain.StrategySimilar:
		source := findCandidate(candidates, rc.SourceProductID)
		for i := range candidates {
			c := &candidates[i]
			if c.Product.ID == source.Product.ID || c.Product.Category != source.Product.Category {
				continue
			}
			out = append(out, scoredCandidate{cand: c, primary: similarity(source, c)})
		}

	case domain.StrategyTrending:
		for i := range candidates {
			c := &candidates[i]
			out = append(out, scoredCandidate{cand: c, primary: float64(c.Engagement.Total())})
		}
	}
	return out, nil
}

// sortCandidates orders by the strategy keys, then rating desc, featured desc,
// createdAt desc and id asc
func sortCandidates(scored []scoredCandidate, strategy domain.Strategy) {
	slices.SortStableFunc(scored, func(a, b scoredCandidate) int {
		if c := cmp.Compare(b.primary, a.primary); c != 0 {
			return c
		}
		switch strategy {
		case domain.StrategyNewAndNotable, domain.StrategyPersonalized:
			if c := b.cand.Product.CreatedAt.Compare(a.cand.Product.CreatedAt); c != 0 {
				return c
			}
		case domain.StrategyFrequentlyBoughtTogether:
			if c := cmp.Compare(b.secondary, a.secondary); c != 0 {
				return c
			}
		}
		return generalTieBreak(a.cand, b.cand)
	})
}

func generalTieBreak(a, b *RankCandidate) int {
	if c := cmp.Compare(b.Reviews.AverageRating, a.Reviews.AverageRating); c != 0 {
		return c
	}
	if c := cmp.Compare(boolScore(b.Product.IsFeatured), boolScore(a.Product.IsFeatured)); c != 0 {
		return c
	}
	if c := b.Product.CreatedAt.Compare(a.Product.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.Product.ID, b.Product.ID)
}

// recencyBonus decays linearly from personalizedRecencyMax at creation to 0 at window age
func recencyBonus(createdAt, now time.Time, window time.Duration) float64 {
	if createdAt.IsZero() || now.IsZero() {
		return 0
	}
	age := now.Sub(createdAt)
	if age <= 0 {
		return personalizedRecencyMax
	}
	if age >= window {
		return 0
	}
	return personalizedRecencyMax * (1 - float64(age)/float64(window))
}

// affinityByCategory sums, per category, one bonus for each kind of prior
// interaction with a product in that category
func affinityByCategory(candidates []RankCandidate, history domain.InteractionHistory) map[domain.Category]float64 {
	categoryOf := make(map[string]domain.Category, len(candidates))
	for i := range candidates {
		categoryOf[candidates[i].Product.ID] = candidates[i].Product.Category
	}

	out := make(map[domain.Category]float64)
	apply := func(ids []string, bonus float64) {
		seen := make(map[domain.Category]bool)
		for _, id := range ids {
			c, ok := categoryOf[id]
			if !ok || seen[c] {
				continue
			}
			seen[c] = true
			out[c] += bonus
		}
	}
	apply(history.Purchased, affinityPurchasedBonus)
	apply(history.Bookmarked, affinityBookmarkedBonus)
	apply(history.Viewed, affinityViewedBonus)
	return out
}

// similarity blends feature-name overlap with closeness of the score vectors
func similarity(source, c *RankCandidate) float64 {
	s := similarityFeatureWeight * jaccard(featureNames(source.Product.Features), featureNames(c.Product.Features))
	if source.Score != nil && c.Score != nil {
		a, b := source.Score.Vector(), c.Score.Vector()
		var sum float64
		for i := range a {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		closeness := 1 - math.Sqrt(sum)/maxVectorDistance
		s += similarityScoreWeight * math.Max(0, closeness)
	}
	return s
}

func featureNames(features []domain.Feature) map[string]bool {
	out := make(map[string]bool, len(features))
	for _, f := range features {
		if name := strings.ToLower(strings.TrimSpace(f.Name)); name != "" {
			out[name] = true
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func findCandidate(candidates []RankCandidate, id string) *RankCandidate {
	for i := range candidates {
		if candidates[i].Product.ID == id {
			return &candidates[i]
		}
	}
	return nil
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
