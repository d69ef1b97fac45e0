package domain

import "errors"

var (
	// ErrComparisonFull is returned when a 4th distinct product is added to a category
	ErrComparisonFull = errors.New("comparison is full for this category")

	// ErrInvalidCategory is returned for unknown categories or a product/category mismatch
	ErrInvalidCategory = errors.New("invalid category")

	// ErrProductNotFound is returned when a product cannot be found in the catalog
	ErrProductNotFound = errors.New("product not found")

	// ErrQuoteNotFound is returned when a quote id is unknown
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrQuoteExpired is returned when deciding on a quote past its validity window
	ErrQuoteExpired = errors.New("quote expired")

	// ErrInvalidQuoteTransition is returned when a quote is no longer pending
	ErrInvalidQuoteTransition = errors.New("invalid quote transition")

	// ErrQuoteNotAccepted is returned when a cart line is requested for a non-accepted quote
	ErrQuoteNotAccepted = errors.New("quote not accepted")

	// ErrInvalidBundle is returned for empty bundles or bundles with duplicate products
	ErrInvalidBundle = errors.New("invalid bundle")

	// ErrInvalidDiscount is returned when a discount override is outside [0,100]
	ErrInvalidDiscount = errors.New("invalid discount percentage")

	// ErrBuyerProfileRequired is returned by strategies that need buyer context
	ErrBuyerProfileRequired = errors.New("buyer profile required")

	// ErrUnknownStrategy is returned for unsupported recommendation strategies
	ErrUnknownStrategy = errors.New("unknown recommendation strategy")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrSelectionConflict is returned when a comparison update lost too many write races
	ErrSelectionConflict = errors.New("comparison selection update conflict")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
