package http

import (
	"github.com/gin-gonic/gin"

	"github.com/vendorlens/backend/config"
	"github.com/vendorlens/backend/internal/infrastructure/logger"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, limiter *IPRateLimiter, log *logger.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}
	{
		products := v1.Group("/products")
		{
			products.GET("/:id/score", handler.GetScore)
			products.POST("/:id/score", handler.ScoreForBuyer)
		}
		v1.POST("/scores/recompute", handler.RecomputeScores)

		comparison := v1.Group("/comparison", RequireSession())
		{
			comparison.GET("", handler.GetComparison)
			comparison.DELETE("", handler.ClearComparison)
			comparison.PUT("/active", handler.SetActiveCategory)
			comparison.POST("/:category/:productId", handler.AddToComparison)
			comparison.DELETE("/:category/:productId", handler.RemoveFromComparison)
			comparison.POST("/:category/:productId/toggle", handler.ToggleComparison)
		}

		v1.POST("/recommendations", handler.Recommend)

		bundles := v1.Group("/bundles")
		{
			bundles.POST("", handler.CreateBundle)
			bundles.POST("/price", handler.PriceBundle)
		}

		quotes := v1.Group("/quotes")
		{
			quotes.POST("", handler.RequestQuote)
			quotes.GET("/:id", handler.GetQuote)
			quotes.POST("/:id/accept", handler.AcceptQuote)
			quotes.POST("/:id/reject", handler.RejectQuote)
			quotes.GET("/:id/cart-line", handler.QuoteCartLine)
		}
	}

	return router
}
