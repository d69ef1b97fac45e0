package domain

import (
	"fmt"
	"time"
)

// Bundle is a group of products priced under a count-based discount tier.
// DiscountedPriceCents never exceeds TotalPriceCents.
type Bundle struct {
	ID                   string    `json:"id,omitempty"`
	ProductIDs           []string  `json:"productIds"`
	DiscountPercentage   float64   `json:"discountPercentage"`
	DiscountOverridden   bool      `json:"discountOverridden"`
	TotalPriceCents      int64     `json:"totalPriceCents"`
	DiscountedPriceCents int64     `json:"discountedPriceCents"`
	CreatedAt            time.Time `json:"createdAt,omitempty"`
}

// SavingsCents is the amount taken off by the discount
func (b Bundle) SavingsCents() int64 {
	return b.TotalPriceCents - b.DiscountedPriceCents
}

// QuoteStatus is the lifecycle state of a quote
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

// QuoteRequirements are the buyer-specific inputs of a quote
type QuoteRequirements struct {
	Features           []string `json:"features,omitempty"`
	CustomRequirements []string `json:"customRequirements,omitempty"`
	Seats              int      `json:"seats,omitempty"`
}

// PricingStep is one adjustment applied while building a quote
type PricingStep struct {
	Step         string  `json:"step"`
	Description  string  `json:"description"`
	Factor       float64 `json:"factor,omitempty"`
	AmountCents  int64   `json:"amountCents"`
	RunningCents int64   `json:"runningCents"`
}

// PricingBreakdown records how a quoted price was derived
type PricingBreakdown struct {
	BaseSource     string        `json:"baseSource"` // "list_price" or "category_rate"
	BasePriceCents int64         `json:"basePriceCents"`
	Steps          []PricingStep `json:"steps"`
	TotalCents     int64         `json:"totalCents"`
}

// Quote is a buyer-specific price offer. Once accepted, QuotedPriceCents is frozen.
type Quote struct {
	ID               string            `json:"id"`
	ProductID        string            `json:"productId"`
	BuyerID          string            `json:"buyerId"`
	CompanySize      int               `json:"companySize"`
	Requirements     QuoteRequirements `json:"requirements"`
	QuotedPriceCents int64             `json:"quotedPriceCents"`
	Breakdown        PricingBreakdown  `json:"pricingBreakdown"`
	Status           QuoteStatus       `json:"status"`
	IssuedAt         time.Time         `json:"issuedAt"`
	ValidUntil       time.Time         `json:"validUntil"`
	DecidedAt        *time.Time        `json:"decidedAt,omitempty"`
}

// IsExpired reports whether the validity window has passed
func (q *Quote) IsExpired(now time.Time) bool {
	return now.After(q.ValidUntil)
}

// EffectiveStatus reports "expired" for pending quotes past their window
func (q *Quote) EffectiveStatus(now time.Time) QuoteStatus {
	if q.Status == QuotePending && q.IsExpired(now) {
		return QuoteExpired
	}
	return q.Status
}

// Accept moves a pending quote to accepted. The price is left untouched.
func (q *Quote) Accept(now time.Time) error {
	return q.decide(QuoteAccepted, now)
}

// Reject moves a pending quote to rejected
func (q *Quote) Reject(now time.Time) error {
	return q.decide(QuoteRejected, now)
}

func (q *Quote) decide(to QuoteStatus, now time.Time) error {
	if q.Status != QuotePending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidQuoteTransition, q.Status, to)
	}
	if q.IsExpired(now) {
		return fmt.Errorf("%w: valid until %s", ErrQuoteExpired, q.ValidUntil.Format(time.RFC3339))
	}
	q.Status = to
	decided := now
	q.DecidedAt = &decided
	return nil
}

// CartLine is a checkout line derived from an accepted quote.
// PriceCents covers every seat in the quote.
type CartLine struct {
	ProductID  string `json:"productId"`
	QuoteID    string `json:"quoteId"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

// CartLine returns the cart line of an accepted quote at the locked price
func (q *Quote) CartLine() (CartLine, error) {
	if q.Status != QuoteAccepted {
		return CartLine{}, fmt.Errorf("%w: status %s", ErrQuoteNotAccepted, q.Status)
	}
	return CartLine{
		ProductID:  q.ProductID,
		QuoteID:    q.ID,
		Quantity:   1,
		PriceCents: q.QuotedPriceCents,
	}, nil
}
