package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vendorlens/backend/internal/domain"
	"github.com/vendorlens/backend/internal/infrastructure/logger"
)

// QuoteRequest asks for a buyer-specific quote on one product
type QuoteRequest struct {
	ProductID    string                   `json:"productId"`
	BuyerID      string                   `json:"buyerId"`
	CompanySize  int                      `json:"companySize"`
	Requirements domain.QuoteRequirements `json:"requirements"`
}

// QuoteService issues quotes and drives their pending -> accepted/rejected lifecycle
type QuoteService struct {
	repo    domain.CatalogRepository
	pricing *PricingEngine
	now     func() time.Time
	log     *logger.Logger
}

// NewQuoteService creates a quote service. clock defaults to the wall clock.
func NewQuoteService(repo domain.CatalogRepository, pricing *PricingEngine, clock func() time.Time, log *logger.Logger) *QuoteService {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &QuoteService{
		repo:    repo,
		pricing: pricing,
		now:     clock,
		log:     log.With("service", "QuoteService"),
	}
}

// Request prices the product at the current list price and stores a pending quote
func (s *QuoteService) Request(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.BuyerID) == "" {
		return nil, fmt.Errorf("%w: buyer id is required", domain.ErrInvalidRequest)
	}

	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	quote, err := s.pricing.GenerateQuote(product, req.CompanySize, req.Requirements, s.now())
	if err != nil {
		return nil, err
	}
	quote.ID = uuid.NewString()
	quote.BuyerID = req.BuyerID

	if err := s.repo.SaveQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("save quote: %w", err)
	}
	s.log.Info("issued quote",
		"quoteId", quote.ID,
		"productId", quote.ProductID,
		"priceCents", quote.QuotedPriceCents,
		"validUntil", quote.ValidUntil)
	return quote, nil
}

// Get returns a quote with its effective status; pending quotes past their window read as expired
func (s *QuoteService) Get(ctx context.Context, id string) (*domain.Quote, error) {
	quote, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	quote.Status = quote.EffectiveStatus(s.now())
	return quote, nil
}

// Accept freezes the quoted price for checkout
func (s *QuoteService) Accept(ctx context.Context, id string) (*domain.Quote, error) {
	return s.decide(ctx, id, (*domain.Quote).Accept)
}

// Reject declines the quote
func (s *QuoteService) Reject(ctx context.Context, id string) (*domain.Quote, error) {
	return s.decide(ctx, id, (*domain.Quote).Reject)
}

func (s *QuoteService) decide(ctx context.Context, id string, transition func(*domain.Quote, time.Time) error) (*domain.Quote, error) {
	quote, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := transition(quote, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuoteStatus(ctx, quote); err != nil {
		return nil, err
	}
	s.log.Info("quote decided", "quoteId", quote.ID, "status", quote.Status)
	return quote, nil
}

// CartLine returns the checkout line of an accepted quote at its locked price
func (s *QuoteService) CartLine(ctx context.Context, id string) (*domain.CartLine, error) {
	quote, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	line, err := quote.CartLine()
	if err != nil {
		return nil, err
	}
	return &line, nil
}
