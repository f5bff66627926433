// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/api and cmd/jobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is populated from environment variables.
type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Upstream prediction source. Empty key means offline demo mode.
	SunburstAPIKey  string
	SunburstBaseURL string
	SunburstRPM     int

	// Push relay. Empty URL disables delivery (records still written).
	PushRelayURL string
	PushRelayRPM int

	// Scheduler cadences
	ScanInterval    time.Duration
	SweepInterval   time.Duration
	CleanupInterval time.Duration
	RetentionDays   int

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("POSTGRES_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or POSTGRES_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		SunburstAPIKey:  envOr("SUNBURST_API_KEY", ""),
		SunburstBaseURL: envOr("SUNBURST_BASE_URL", ""),
		SunburstRPM:     envInt("SUNBURST_RATE_LIMIT_RPM", 30),

		PushRelayURL: envOr("PUSH_RELAY_URL", ""),
		PushRelayRPM: envInt("PUSH_RELAY_RATE_LIMIT_RPM", 120),

		ScanInterval:    time.Duration(envInt("SCAN_INTERVAL_MINUTES", 60)) * time.Minute,
		SweepInterval:   time.Duration(envInt("SWEEP_INTERVAL_MINUTES", 5)) * time.Minute,
		CleanupInterval: time.Duration(envInt("CLEANUP_INTERVAL_MINUTES", 360)) * time.Minute,
		RetentionDays:   envInt("NOTIFICATION_RETENTION_DAYS", 30),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// DemoMode reports whether predictions come from the offline generator.
func (c *Config) DemoMode() bool {
	return c.SunburstAPIKey == ""
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
