package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vendorlens/backend/internal/domain"
)

func TestNewFeatureMatcher(t *testing.T) {
	t.Run("uses defaults when unset", func(t *testing.T) {
		m := NewFeatureMatcher(FeatureMatchConfig{})
		if m.minCoverage != 0.75 {
			t.Errorf("minCoverage = %v, want 0.75 (default)", m.minCoverage)
		}
		if m.editDistance != 1 {
			t.Errorf("editDistance = %v, want 1 (default)", m.editDistance)
		}
	})

	t.Run("coverage above one falls back to default", func(t *testing.T) {
		m := NewFeatureMatcher(FeatureMatchConfig{MinCoverage: 1.5})
		if m.minCoverage != 0.75 {
			t.Errorf("minCoverage = %v, want 0.75 (default)", m.minCoverage)
		}
	})

	t.Run("keeps provided options", func(t *testing.T) {
		m := NewFeatureMatcher(FeatureMatchConfig{MinCoverage: 1, EditDistance: 2})
		if m.minCoverage != 1 || m.editDistance != 2 {
			t.Errorf("got (%v, %v), want (1, 2)", m.minCoverage, m.editDistance)
		}
	})
}

func TestFeatureMatcherOffers(t *testing.T) {
	m := NewFeatureMatcher(FeatureMatchConfig{})
	offered := []domain.Feature{
		{Name: "Single Sign-On"},
		{Name: "Audit Log Retention"},
		{Name: "Payroll"},
		{Name: "API"},
		{Name: "Über Export"},
	}

	tests := []struct {
		name      string
		requested string
		want      bool
	}{
		{name: "exact name ignoring case and spacing", requested: "  payroll ", want: true},
		{name: "acronym of an offered feature", requested: "SSO", want: true},
		{name: "spelled-out punctuation variant", requested: "single sign on", want: true},
		{name: "subset of an offered feature's words", requested: "audit log", want: true},
		{name: "small typo", requested: "payrol", want: true},
		{name: "acronym of non-ascii words", requested: "ÜE", want: true},
		{name: "short tokens only match exactly", requested: "apis", want: false},
		{name: "half the words is not enough", requested: "audit trail", want: false},
		{name: "unrelated feature", requested: "expense reports", want: false},
		{name: "blank request", requested: "   ", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Offers(offered, tt.requested))
		})
	}
}

func TestFeatureMatcherExtras(t *testing.T) {
	m := NewFeatureMatcher(FeatureMatchConfig{})
	offered := []domain.Feature{{Name: "Single Sign-On (SSO)"}, {Name: "Time Tracking"}}

	got := m.Extras(offered, []string{"SSO", "Audit  Log", "audit log", "", "time-tracking", "Benefits Admin"})
	assert.Equal(t, []string{"audit log", "benefits admin"}, got)

	assert.Empty(t, m.Extras(nil, nil))
	assert.Equal(t, []string{"sso"}, m.Extras(nil, []string{"SSO"}))
}

func TestIsAcronymOf(t *testing.T) {
	assert.True(t, isAcronymOf([]string{"sso"}, []string{"single", "sign", "on"}))
	assert.False(t, isAcronymOf([]string{"sso"}, []string{"single"}))
	assert.False(t, isAcronymOf([]string{"ss", "o"}, []string{"single", "sign", "on"}))
	assert.False(t, isAcronymOf([]string{"hr"}, []string{"payroll", "hub"}))

	// initials are whole runes, not the first byte of each word
	assert.True(t, isAcronymOf([]string{"üe"}, []string{"über", "export"}))
	assert.True(t, isAcronymOf([]string{"ерп"}, []string{"единый", "реестр", "платежей"}))
	assert.False(t, isAcronymOf([]string{"ue"}, []string{"über", "export"}))
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"", "sso", 3},
		{"payroll", "", 7},
		{"payroll", "payroll", 0},
		{"payroll", "payrol", 1},
		{"invoice", "invoices", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		if got := levenshteinDistance(tt.s1, tt.s2); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.want)
		}
	}
}

func TestFuzzyTokenMatch(t *testing.T) {
	tests := []struct {
		name   string
		t1, t2 string
		want   bool
	}{
		{name: "identical", t1: "api", t2: "api", want: true},
		{name: "one edit on long tokens", t1: "billing", t2: "biling", want: true},
		{name: "short tokens never fuzzy match", t1: "api", t2: "apis", want: false},
		{name: "length gap above threshold", t1: "report", t2: "reporting", want: false},
		{name: "two edits", t1: "ledger", t2: "leader", want: false},
		{name: "length counts runes", t1: "größe", t2: "große", want: true},
		{name: "three rune token stays exact", t1: "ärz", t2: "arz", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fuzzyTokenMatch(tt.t1, tt.t2, 1))
		})
	}
}
