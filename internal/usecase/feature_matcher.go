package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vendorlens/backend/internal/domain"
)

var featurePunctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// featureStopWords carry no meaning when comparing feature names
var featureStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "with": true, "for": true,
	"of": true, "to": true, "via": true, "on": true, "in": true, "support": true,
}

const (
	defaultFeatureMinCoverage  = 0.75
	defaultFeatureEditDistance = 1
	fuzzyFeatureTokenMinLength = 4
)

// FeatureMatchConfig holds configuration for the feature matcher
type FeatureMatchConfig struct {
	MinCoverage  float64
	EditDistance int
}

// FeatureMatcher decides whether a product already offers a requested feature.
// Names match when most requested tokens appear among one offered feature's
// tokens, allowing small typos, or when one name is the acronym of the other.
type FeatureMatcher struct {
	minCoverage  float64
	editDistance int
}

// NewFeatureMatcher creates a matcher, filling unset options with defaults
func NewFeatureMatcher(config FeatureMatchConfig) *FeatureMatcher {
	if config.MinCoverage <= 0 || config.MinCoverage > 1 {
		config.MinCoverage = defaultFeatureMinCoverage
	}
	if config.EditDistance <= 0 {
		config.EditDistance = defaultFeatureEditDistance
	}
	return &FeatureMatcher{
		minCoverage:  config.MinCoverage,
		editDistance: config.EditDistance,
	}
}

// Extras lists requested feature names, normalized and deduplicated, that none of
// the offered features cover
func (m *FeatureMatcher) Extras(offered []domain.Feature, requested []string) []string {
	seen := make(map[string]bool, len(requested))
	var out []string
	for _, r := range requested {
		name := normalizeFeatureName(r)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if !m.Offers(offered, name) {
			out = append(out, name)
		}
	}
	return out
}

// Offers reports whether any offered feature covers the requested name
func (m *FeatureMatcher) Offers(offered []domain.Feature, requested string) bool {
	name := normalizeFeatureName(requested)
	if name == "" {
		return false
	}
	reqWords := featureWords(name)
	reqTokens := featureTokens(reqWords)
	for _, f := range offered {
		offeredName := normalizeFeatureName(f.Name)
		if offeredName == "" {
			continue
		}
		if offeredName == name {
			return true
		}
		offWords := featureWords(offeredName)
		if isAcronymOf(reqWords, offWords) || isAcronymOf(offWords, reqWords) {
			return true
		}
		if m.coverage(reqTokens, featureTokens(offWords)) >= m.minCoverage {
			return true
		}
	}
	return false
}

// coverage is the share of requested tokens found among the offered tokens
func (m *FeatureMatcher) coverage(requested, offered []string) float64 {
	if len(requested) == 0 || len(offered) == 0 {
		return 0
	}
	matched := 0
	for _, r := range requested {
		for _, o := range offered {
			if r == o || fuzzyTokenMatch(r, o, m.editDistance) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(requested))
}

func normalizeFeatureName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// featureWords splits a normalized name into words, punctuation removed
func featureWords(name string) []string {
	return strings.Fields(featurePunctuationRegex.ReplaceAllString(name, " "))
}

// featureTokens drops stop words and single characters
func featureTokens(words []string) []string {
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 1 || featureStopWords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// isAcronymOf reports whether short is a single word spelling the initials of long
func isAcronymOf(short, long []string) bool {
	if len(short) != 1 || len(long) < 2 {
		return false
	}
	var initials strings.Builder
	for _, w := range long {
		r, _ := utf8.DecodeRuneInString(w)
		initials.WriteRune(r)
	}
	return short[0] == initials.String()
}

// fuzzyTokenMatch checks if two tokens are within the edit distance threshold.
// Short tokens only match exactly.
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}
	n1, n2 := utf8.RuneCountInString(token1), utf8.RuneCountInString(token2)
	if n1 < fuzzyFeatureTokenMinLength || n2 < fuzzyFeatureTokenMinLength {
		return false
	}
	lenDiff := n1 - n2
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}
	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// two rows instead of the full matrix
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}
