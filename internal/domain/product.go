package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category is one of the fixed marketplace categories
type Category string

const (
	CategoryHR         Category = "HR"
	CategoryLegal      Category = "Legal"
	CategoryMarketing  Category = "Marketing"
	CategoryDevTools   Category = "DevTools"
	CategoryFinance    Category = "Finance"
	CategorySales      Category = "Sales"
	CategoryOperations Category = "Operations"
	CategorySecurity   Category = "Security"
)

// Categories lists every category in enumeration order.
// Active-category reassignment walks this order.
var Categories = []Category{
	CategoryHR,
	CategoryLegal,
	CategoryMarketing,
	CategoryDevTools,
	CategoryFinance,
	CategorySales,
	CategoryOperations,
	CategorySecurity,
}

// ParseCategory resolves a category name case-insensitively
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Valid reports whether c is part of the enumeration
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Deployment is the cloud/client classification of a product
type Deployment string

const (
	DeploymentCloud  Deployment = "cloud"
	DeploymentClient Deployment = "client"
	DeploymentHybrid Deployment = "hybrid"
)

// apiTokens are the access-depth tokens that signal a programmable integration surface
var apiTokens = map[string]bool{
	"api":      true,
	"rest_api": true,
	"graphql":  true,
	"webhooks": true,
	"sdk":      true,
}

// AccessDepth is the normalized set of access tokens a product requires or exposes
type AccessDepth []string

// ParseAccessDepth turns the legacy free-text field into tokens. Text with a
// list delimiter (",", ";", "|" or a newline) splits on the delimiters only, so
// "API, SSO, audit logs" keeps "audit_logs" as one token. Text without one is a
// whitespace separated list: "API SSO read-only" is three tokens.
func ParseAccessDepth(raw string) AccessDepth {
	isDelimiter := func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '\n'
	}
	if !strings.ContainsFunc(raw, isDelimiter) {
		return NewAccessDepth(strings.Fields(raw)...)
	}
	return NewAccessDepth(strings.FieldsFunc(raw, isDelimiter)...)
}

// NewAccessDepth normalizes the given tokens
func NewAccessDepth(tokens ...string) AccessDepth {
	seen := make(map[string]bool, len(tokens))
	var out AccessDepth
	for _, t := range tokens {
		t = strings.Join(strings.Fields(strings.ToLower(t)), "_")
		t = strings.ReplaceAll(t, "-", "_")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// HasAPI reports whether any token indicates API availability
func (a AccessDepth) HasAPI() bool {
	for _, t := range a {
		if apiTokens[t] {
			return true
		}
	}
	return false
}

// String renders the tokens in their stored form
func (a AccessDepth) String() string {
	return strings.Join(a, ",")
}

// Feature is one catalog feature attached to a product
type Feature struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	RelevanceScore int    `json:"relevanceScore"` // 0-100
	Category       string `json:"category,omitempty"`
	DisplayOrder   int    `json:"displayOrder"`
}

// Product is a catalog listing as supplied by the catalog repository.
// The engine never mutates a Product.
type Product struct {
	ID                              string      `json:"id"`
	Name                            string      `json:"name"`
	ShortDescription                string      `json:"shortDescription,omitempty"`
	LongDescription                 string      `json:"longDescription,omitempty"`
	PriceCents                      int64       `json:"priceCents"`
	Category                        Category    `json:"category"`
	ImplementationTimeDays          *int        `json:"implementationTimeDays,omitempty"`
	Deployment                      Deployment  `json:"cloudClientClassification,omitempty"`
	AccessDepth                     AccessDepth `json:"accessDepth,omitempty"`
	ROIPercentage                   *float64    `json:"roiPercentage,omitempty"`
	RetentionRate                   *float64    `json:"retentionRate,omitempty"`
	QuarterOverQuarterChangePercent *float64    `json:"quarterOverQuarterChangePercent,omitempty"`
	DemoVisualURL                   string      `json:"demoVisualUrl,omitempty"`
	IsFeatured                      bool        `json:"isFeatured"`
	IsNew                           bool        `json:"isNew"`
	CreatedAt                       time.Time   `json:"createdAt"`
	Features                        []Feature   `json:"features,omitempty"`
}

// QuoteOnly reports whether the product has no list price
func (p *Product) QuoteOnly() bool {
	return p.PriceCents == 0
}

// ReviewStats aggregates the reviews of a product
type ReviewStats struct {
	AverageRating float64 `json:"averageRating"`
	Count         int     `json:"count"`
}

// BudgetRange is the buyer's spend window in cents
type BudgetRange struct {
	MinCents int64 `json:"minCents,omitempty"`
	MaxCents int64 `json:"maxCents,omitempty"`
}

// BuyerProfile is optional buyer context supplied per request
type BuyerProfile struct {
	CompanySize          int         `json:"companySize"`
	InterestedCategories []Category  `json:"interestedCategories,omitempty"`
	PriorityMetrics      []string    `json:"priorityMetrics,omitempty"`
	BudgetRange          BudgetRange `json:"budgetRange"`
}

// InterestedIn reports whether the buyer lists c among interested categories
func (b *BuyerProfile) InterestedIn(c Category) bool {
	if b == nil {
		return false
	}
	for _, ic := range b.InterestedCategories {
		if ic == c {
			return true
		}
	}
	return false
}

// InteractionHistory is the caller's prior activity, supplied by the identity provider
type InteractionHistory struct {
	Viewed     []string `json:"viewed,omitempty"`
	Bookmarked []string `json:"bookmarked,omitempty"`
	Purchased  []string `json:"purchased,omitempty"`
}

// Engagement is the recent activity counted for a product over a trailing window
type Engagement struct {
	Views     int `json:"views"`
	Bookmarks int `json:"bookmarks"`
	Purchases int `json:"purchases"`
}

// Total is the unweighted engagement signal
func (e Engagement) Total() int {
	return e.Views + e.Bookmarks + e.Purchases
}

// EngagementKind names one kind of recorded interaction
type EngagementKind string

const (
	EngagementView     EngagementKind = "view"
	EngagementBookmark EngagementKind = "bookmark"
	EngagementPurchase EngagementKind = "purchase"
)
