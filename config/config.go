package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Cache          CacheConfig
	Comparison     ComparisonConfig
	RateLimit      RateLimitConfig
	Scoring        ScoringConfig
	Recommendation RecommendationConfig
	Pricing        PricingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig locates the SQLite catalog and its optional seed file
type DatabaseConfig struct {
	Path     string `mapstructure:"path"`
	SeedFile string `mapstructure:"seed_file"`
}

// CacheConfig holds score cache configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ComparisonConfig selects where comparison selections live
type ComparisonConfig struct {
	Store      string        `mapstructure:"store"` // "memory" or "redis"
	RedisURL   string        `mapstructure:"redis_url"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// ScoringConfig holds score engine settings
type ScoringConfig struct {
	BatchWorkers       int  `mapstructure:"batch_workers"`
	EnableDebugLogging bool `mapstructure:"enable_debug_logging"`
}

// RecommendationConfig holds ranking settings
type RecommendationConfig struct {
	DefaultLimit   int           `mapstructure:"default_limit"`
	TrendingWindow time.Duration `mapstructure:"trending_window"`
	RecencyWindow  time.Duration `mapstructure:"recency_window"`
}

// PricingConfig holds quote settings
type PricingConfig struct {
	QuoteValidity              time.Duration `mapstructure:"quote_validity"`
	ExtraFeatureSurchargeCents int64         `mapstructure:"extra_feature_surcharge_cents"`
	FeatureMatchCoverage       float64       `mapstructure:"feature_match_coverage"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/vendorlens/")

	// VENDORLENS_CACHE_REDIS_URL -> cache.redis_url
	v.SetEnvPrefix("VENDORLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env when present. Variables already set in the
// environment win.
func loadEnvFile() error {
	if err := godotenv.Load(".env"); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs a default
// so that AutomaticEnv picks it up during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Database defaults
	v.SetDefault("database.path", "vendorlens.db")
	v.SetDefault("database.seed_file", "")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "1h")

	// Comparison defaults
	v.SetDefault("comparison.store", "memory")
	v.SetDefault("comparison.redis_url", "")
	v.SetDefault("comparison.session_ttl", "24h")
	v.SetDefault("comparison.max_retries", 10)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	// Scoring defaults
	v.SetDefault("scoring.batch_workers", 4)
	v.SetDefault("scoring.enable_debug_logging", false)

	// Recommendation defaults
	v.SetDefault("recommendation.default_limit", 10)
	v.SetDefault("recommendation.trending_window", "168h")
	v.SetDefault("recommendation.recency_window", "720h")

	// Pricing defaults
	v.SetDefault("pricing.quote_validity", "720h")
	v.SetDefault("pricing.extra_feature_surcharge_cents", 25000)
	v.SetDefault("pricing.feature_match_coverage", 0.75)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Database.Path == "" {
		return fmt.Errorf("database path is required (set VENDORLENS_DATABASE_PATH)")
	}

	if err := validateBackend("cache type", config.Cache.Type, config.Cache.RedisURL); err != nil {
		return err
	}
	if err := validateBackend("comparison store", config.Comparison.Store, config.Comparison.RedisURL); err != nil {
		return err
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("ratelimit per_ip must be positive, got: %d", config.RateLimit.PerIP)
	}
	if config.Scoring.BatchWorkers < 0 {
		return fmt.Errorf("scoring batch_workers must not be negative, got: %d", config.Scoring.BatchWorkers)
	}
	if config.Recommendation.DefaultLimit < 0 {
		return fmt.Errorf("recommendation default_limit must not be negative, got: %d", config.Recommendation.DefaultLimit)
	}
	if config.Pricing.ExtraFeatureSurchargeCents < 0 {
		return fmt.Errorf("pricing extra_feature_surcharge_cents must not be negative, got: %d", config.Pricing.ExtraFeatureSurchargeCents)
	}
	if config.Pricing.FeatureMatchCoverage < 0 || config.Pricing.FeatureMatchCoverage > 1 {
		return fmt.Errorf("pricing feature_match_coverage must be between 0 and 1, got: %v", config.Pricing.FeatureMatchCoverage)
	}

	return nil
}

func validateBackend(name, kind, redisURL string) error {
	if kind != "memory" && kind != "redis" {
		return fmt.Errorf("%s must be 'memory' or 'redis', got: %s", name, kind)
	}
	if kind == "redis" && redisURL == "" {
		return fmt.Errorf("Redis URL is required when %s is 'redis'", name)
	}
	return nil
}
