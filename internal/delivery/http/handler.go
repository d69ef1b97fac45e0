package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendorlens/backend/internal/domain"
	"github.com/vendorlens/backend/internal/usecase"
)

const version = "1.0.0"

// Services are the use cases served over HTTP
type Services struct {
	Catalog         *usecase.CatalogService
	Comparison      *usecase.ComparisonService
	Recommendations *usecase.RecommendationService
	Bundles         *usecase.BundleService
	Quotes          *usecase.QuoteService
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog         *usecase.CatalogService
	comparison      *usecase.ComparisonService
	recommendations *usecase.RecommendationService
	bundles         *usecase.BundleService
	quotes          *usecase.QuoteService
}

// NewHandler creates a new HTTP handler
func NewHandler(s Services) *Handler {
	return &Handler{
		catalog:         s.Catalog,
		comparison:      s.Comparison,
		recommendations: s.Recommendations,
		bundles:         s.Bundles,
		quotes:          s.Quotes,
	}
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrComparisonFull),
		errors.Is(err, domain.ErrInvalidQuoteTransition),
		errors.Is(err, domain.ErrQuoteNotAccepted),
		errors.Is(err, domain.ErrSelectionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidBundle),
		errors.Is(err, domain.ErrInvalidDiscount),
		errors.Is(err, domain.ErrUnknownStrategy),
		errors.Is(err, domain.ErrBuyerProfileRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrQuoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuoteExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Internal errors are not echoed to clients.
func respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "vendorlens-backend",
		"version": version,
	})
}

// GetScore returns the catalog score of a product
func (h *Handler) GetScore(c *gin.Context) {
	score, err := h.catalog.ScoreProduct(c.Request.Context(), c.Param("id"), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// ScoreForBuyer scores a product against the buyer profile in the body
func (h *Handler) ScoreForBuyer(c *gin.Context) {
	var buyer domain.BuyerProfile
	if err := c.ShouldBindJSON(&buyer); err != nil {
		respondError(c, badRequest(err))
		return
	}
	score, err := h.catalog.ScoreProduct(c.Request.Context(), c.Param("id"), &buyer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// RecomputeScores rescores the whole catalog
func (h *Handler) RecomputeScores(c *gin.Context) {
	summary, err := h.catalog.RecomputeAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetComparison returns the session's comparison selection
func (h *Handler) GetComparison(c *gin.Context) {
	snap, err := h.comparison.Get(c.Request.Context(), c.GetString(sessionIDKey))
	h.respondSnapshot(c, snap, err)
}

// ClearComparison empties one category (?category=) or the whole selection
func (h *Handler) ClearComparison(c *gin.Context) {
	snap, err := h.comparison.Clear(c.Request.Context(), c.GetString(sessionIDKey), c.Query("category"))
	h.respondSnapshot(c, snap, err)
}

// AddToComparison selects a product for comparison
func (h *Handler) AddToComparison(c *gin.Context) {
	snap, err := h.comparison.Add(c.Request.Context(), c.GetString(sessionIDKey), c.Param("category"), c.Param("productId"))
	h.respondSnapshot(c, snap, err)
}

// RemoveFromComparison deselects a product
func (h *Handler) RemoveFromComparison(c *gin.Context) {
	snap, err := h.comparison.Remove(c.Request.Context(), c.GetString(sessionIDKey), c.Param("category"), c.Param("productId"))
	h.respondSnapshot(c, snap, err)
}

// ToggleComparison flips a product's selection
func (h *Handler) ToggleComparison(c *gin.Context) {
	snap, err := h.comparison.Toggle(c.Request.Context(), c.GetString(sessionIDKey), c.Param("category"), c.Param("productId"))
	h.respondSnapshot(c, snap, err)
}

type activeCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

// SetActiveCategory switches the category shown in the comparison view
func (h *Handler) SetActiveCategory(c *gin.Context) {
	var req activeCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	snap, err := h.comparison.SetActiveCategory(c.Request.Context(), c.GetString(sessionIDKey), req.Category)
	h.respondSnapshot(c, snap, err)
}

// respondSnapshot writes a comparison snapshot. A full category answers 409
// with the unchanged selection and a user-facing message.
func (h *Handler) respondSnapshot(c *gin.Context, snap *domain.ComparisonSnapshot, err error) {
	if errors.Is(err, domain.ErrComparisonFull) && snap != nil {
		_ = c.Error(err)
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"comparison": snap,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Recommend ranks products for the requested strategy
func (h *Handler) Recommend(c *gin.Context) {
	var req usecase.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	ranked, err := h.recommendations.Recommend(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"strategy": req.Strategy,
		"items":    ranked,
		"count":    len(ranked),
	})
}

// PriceBundle prices a product set without storing it
func (h *Handler) PriceBundle(c *gin.Context) {
	var req usecase.BundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	bundle, err := h.bundles.Price(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// CreateBundle prices and stores a bundle
func (h *Handler) CreateBundle(c *gin.Context) {
	var req usecase.BundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	bundle, err := h.bundles.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bundle)
}

// RequestQuote issues a buyer-specific quote
func (h *Handler) RequestQuote(c *gin.Context) {
	var req usecase.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	quote, err := h.quotes.Request(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quote)
}

// GetQuote returns a quote with its effective status
func (h *Handler) GetQuote(c *gin.Context) {
	quote, err := h.quotes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// AcceptQuote locks the quoted price
func (h *Handler) AcceptQuote(c *gin.Context) {
	quote, err := h.quotes.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// RejectQuote declines a pending quote
func (h *Handler) RejectQuote(c *gin.Context) {
	quote, err := h.quotes.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// QuoteCartLine returns the checkout line of an accepted quote
func (h *Handler) QuoteCartLine(c *gin.Context) {
	line, err := h.quotes.CartLine(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
}
