package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"VENDORLENS_SERVER_PORT",
	"VENDORLENS_SERVER_ENVIRONMENT",
	"VENDORLENS_SERVER_ALLOWED_ORIGINS",
	"VENDORLENS_DATABASE_PATH",
	"VENDORLENS_DATABASE_SEED_FILE",
	"VENDORLENS_CACHE_TYPE",
	"VENDORLENS_CACHE_REDIS_URL",
	"VENDORLENS_CACHE_TTL",
	"VENDORLENS_COMPARISON_STORE",
	"VENDORLENS_COMPARISON_REDIS_URL",
	"VENDORLENS_COMPARISON_SESSION_TTL",
	"VENDORLENS_RATELIMIT_PER_IP",
	"VENDORLENS_SCORING_BATCH_WORKERS",
	"VENDORLENS_RECOMMENDATION_TRENDING_WINDOW",
	"VENDORLENS_PRICING_QUOTE_VALIDITY",
	"VENDORLENS_PRICING_FEATURE_MATCH_COVERAGE",
}

func TestLoad(t *testing.T) {
	cleanupEnv := func() {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Database.Path != "vendorlens.db" {
			t.Errorf("Database.Path = %s, want vendorlens.db", cfg.Database.Path)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.Comparison.Store != "memory" || cfg.Comparison.MaxRetries != 10 {
			t.Errorf("Comparison = %+v, want memory store with 10 retries", cfg.Comparison)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.Scoring.BatchWorkers != 4 {
			t.Errorf("Scoring.BatchWorkers = %d, want 4", cfg.Scoring.BatchWorkers)
		}
		if cfg.Recommendation.TrendingWindow != 7*24*time.Hour {
			t.Errorf("Recommendation.TrendingWindow = %v, want 168h", cfg.Recommendation.TrendingWindow)
		}
		if cfg.Pricing.QuoteValidity != 30*24*time.Hour {
			t.Errorf("Pricing.QuoteValidity = %v, want 720h", cfg.Pricing.QuoteValidity)
		}
		if cfg.Pricing.ExtraFeatureSurchargeCents != 25000 {
			t.Errorf("Pricing.ExtraFeatureSurchargeCents = %d, want 25000", cfg.Pricing.ExtraFeatureSurchargeCents)
		}
		if cfg.Pricing.FeatureMatchCoverage != 0.75 {
			t.Errorf("Pricing.FeatureMatchCoverage = %v, want 0.75", cfg.Pricing.FeatureMatchCoverage)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VENDORLENS_SERVER_PORT", "9090")
		os.Setenv("VENDORLENS_SERVER_ENVIRONMENT", "production")
		os.Setenv("VENDORLENS_SERVER_ALLOWED_ORIGINS", "https://vendorlens.io,https://*.vendorlens.io")
		os.Setenv("VENDORLENS_DATABASE_PATH", "/var/lib/vendorlens/catalog.db")
		os.Setenv("VENDORLENS_CACHE_TYPE", "redis")
		os.Setenv("VENDORLENS_CACHE_REDIS_URL", "redis://localhost:6379")
		os.Setenv("VENDORLENS_CACHE_TTL", "24h")
		os.Setenv("VENDORLENS_COMPARISON_STORE", "redis")
		os.Setenv("VENDORLENS_COMPARISON_REDIS_URL", "redis://localhost:6379/1")
		os.Setenv("VENDORLENS_RATELIMIT_PER_IP", "200")
		os.Setenv("VENDORLENS_PRICING_QUOTE_VALIDITY", "168h")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if strings.Join(cfg.Server.AllowedOrigins, " ") != "https://vendorlens.io https://*.vendorlens.io" {
			t.Errorf("Server.AllowedOrigins = %v", cfg.Server.AllowedOrigins)
		}
		if cfg.Database.Path != "/var/lib/vendorlens/catalog.db" {
			t.Errorf("Database.Path = %s", cfg.Database.Path)
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379" {
			t.Errorf("Cache.RedisURL = %s, want redis://localhost:6379", cfg.Cache.RedisURL)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Comparison.RedisURL != "redis://localhost:6379/1" {
			t.Errorf("Comparison.RedisURL = %s", cfg.Comparison.RedisURL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.Pricing.QuoteValidity != 7*24*time.Hour {
			t.Errorf("Pricing.QuoteValidity = %v, want 168h", cfg.Pricing.QuoteValidity)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VENDORLENS_CACHE_TYPE", "invalid")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("fails validation when redis URL missing for redis comparison store", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("VENDORLENS_COMPARISON_STORE", "redis")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for missing Redis URL")
		}
		if !strings.Contains(err.Error(), "comparison store") {
			t.Errorf("Load() error = %v, want mention of comparison store", err)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		t.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		t.Chdir(t.TempDir())

		envContent := `
# Comment line
TEST_VAR_1=value1

   # Indented comment
TEST_VAR_2=value2
# TEST_COMMENTED=should_not_load
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_COMMENTED")
		defer func() {
			os.Unsetenv("TEST_VAR_1")
			os.Unsetenv("TEST_VAR_2")
		}()

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("TEST_OVERRIDE", "existing-value")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:   DatabaseConfig{Path: "catalog.db"},
			Cache:      CacheConfig{Type: "memory"},
			Comparison: ComparisonConfig{Store: "memory"},
			RateLimit:  RateLimitConfig{PerIP: 100},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "validates successfully with all required fields", mutate: func(*Config) {}},
		{name: "fails when database path is empty", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "fails for invalid cache type", mutate: func(c *Config) { c.Cache.Type = "invalid-type" }, wantErr: true},
		{
			name: "validates redis cache type with URL",
			mutate: func(c *Config) {
				c.Cache.Type = "redis"
				c.Cache.RedisURL = "redis://localhost:6379"
			},
		},
		{name: "fails for redis cache without URL", mutate: func(c *Config) { c.Cache.Type = "redis" }, wantErr: true},
		{name: "fails for invalid comparison store", mutate: func(c *Config) { c.Comparison.Store = "disk" }, wantErr: true},
		{name: "fails for non-positive rate limit", mutate: func(c *Config) { c.RateLimit.PerIP = 0 }, wantErr: true},
		{name: "zero surcharge turns feature surcharges off", mutate: func(c *Config) { c.Pricing.ExtraFeatureSurchargeCents = 0 }},
		{name: "fails for negative surcharge", mutate: func(c *Config) { c.Pricing.ExtraFeatureSurchargeCents = -1 }, wantErr: true},
		{name: "fails for feature match coverage above one", mutate: func(c *Config) { c.Pricing.FeatureMatchCoverage = 1.2 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
