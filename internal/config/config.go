// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Model artifacts
	ModelDir string // Directory holding classifier.json and forecaster.json

	// Scoring settings
	FallbackRiskPct     int // Risk returned when no classifier is available
	ForecastHorizonDays int // Default forecast horizon

	// Dashboard gate
	AdminID        string
	AdminAccessKey string
	SessionTTL     time.Duration

	// Recovery offers
	StripeAPIKey string // Optional; static offer codes are used when unset

	// Observability
	OTLPEndpoint string

	// Security
	RateLimitRPM int
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultModelDir        = "models"
	DefaultFallbackRisk    = 15
	DefaultForecastHorizon = 14
	DefaultSessionTTL      = 30 * time.Minute
	DefaultRateLimit       = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		ModelDir:            getEnv("MODEL_DIR", DefaultModelDir),
		FallbackRiskPct:     getEnvInt("FALLBACK_RISK_PCT", DefaultFallbackRisk),
		ForecastHorizonDays: getEnvInt("FORECAST_HORIZON_DAYS", DefaultForecastHorizon),
		AdminID:             getEnv("ADMIN_ID", "admin"),
		AdminAccessKey:      os.Getenv("ADMIN_ACCESS_KEY"), // Required, no default
		SessionTTL:          getEnvDuration("SESSION_TTL", DefaultSessionTTL),
		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:        getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.AdminAccessKey == "" {
		return fmt.Errorf("ADMIN_ACCESS_KEY is required")
	}
	if len(c.AdminAccessKey) < 8 {
		return fmt.Errorf("ADMIN_ACCESS_KEY must be at least 8 characters")
	}
	if c.FallbackRiskPct < 0 || c.FallbackRiskPct > 100 {
		return fmt.Errorf("FALLBACK_RISK_PCT must be in [0,100], got %d", c.FallbackRiskPct)
	}
	if c.ForecastHorizonDays < 1 {
		return fmt.Errorf("FORECAST_HORIZON_DAYS must be positive, got %d", c.ForecastHorizonDays)
	}
	if c.ModelDir == "" {
		return fmt.Errorf("MODEL_DIR must not be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
