// Package config provides centralized configuration management for the
// text analyzer service. It loads configuration from CLI flags and
// environment variables, validates required fields, and provides sensible
// defaults.
//
// CLI flags control which services are mocked (--no-redis, --test).
// Environment variables provide secrets and service configuration.
package config

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quillmark/text-analyzer/internal/ratelimit"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr string

	// Database and encryption
	DatabasePath string // Path to the SQLite file (e.g. /data/texts.db)
	DatabaseKey  string // 64 hex characters (32 bytes), SQLCipher key

	// Token verification
	JWTSecret string

	// Cache
	RedisURL string        // e.g. redis://localhost:6379/0
	CacheTTL time.Duration // per-entry expiry for cached records

	// Rate limiting
	RateLimitConfig ratelimit.Config

	// Mock service flags (controlled by CLI flags, not env vars)
	NoRedis bool // If true, use the in-process cache backend (--no-redis)
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags parses CLI flags and returns them. Call before LoadConfig.
// This registers and parses the --no-redis, --test, and --addr flags.
func ParseFlags() (noRedis bool, addr string) {
	var testMode bool
	flag.BoolVar(&noRedis, "no-redis", false, "Use in-process cache instead of Redis")
	flag.BoolVar(&testMode, "test", false, "Shorthand for --no-redis")
	flag.StringVar(&addr, "addr", "", "Listen address (default :8080, overrides LISTEN_ADDR env var)")
	flag.Parse()

	if testMode {
		noRedis = true
	}

	return noRedis, addr
}

// LoadConfig loads configuration from environment variables and CLI flag
// values. The noRedis flag selects the in-process cache backend. The addr
// flag overrides the LISTEN_ADDR env var if non-empty.
func LoadConfig(noRedis bool, addr string) (*Config, error) {
	cfg := &Config{}

	cfg.NoRedis = noRedis

	// Server settings
	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")
	if addr != "" {
		cfg.ListenAddr = addr
	}

	// Database and encryption
	cfg.DatabasePath = getEnvOrDefault("DATABASE_PATH", "/data/texts.db")
	cfg.DatabaseKey = strings.TrimSpace(os.Getenv("DATABASE_KEY"))

	// Token verification
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	// Cache
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.CacheTTL = parseDurationOrDefault("CACHE_TTL", time.Hour)

	// Rate limiting
	cfg.RateLimitConfig = ratelimit.Config{
		RPS:             parseFloat64OrDefault("RATE_LIMIT_RPS", 10),
		Burst:           parseIntOrDefault("RATE_LIMIT_BURST", 20),
		CleanupInterval: parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
// When the Redis mock is NOT active, REDIS_URL is required.
func (c *Config) Validate() error {
	var errs []string

	// DatabaseKey: always required (losing it = database unreadable)
	if c.DatabaseKey == "" {
		errs = append(errs, "DATABASE_KEY is required (generate with: openssl rand -hex 32)")
	} else if len(c.DatabaseKey) != 64 {
		errs = append(errs, "DATABASE_KEY must be 64 hex characters (32 bytes)")
	} else if _, err := hex.DecodeString(c.DatabaseKey); err != nil {
		errs = append(errs, "DATABASE_KEY must be valid hex")
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required (generate with: openssl rand -hex 32)")
	}

	if !c.NoRedis && c.RedisURL == "" {
		errs = append(errs, "REDIS_URL is required (set env var or use --no-redis)")
	}

	if c.CacheTTL <= 0 {
		errs = append(errs, "CACHE_TTL must be positive")
	}

	if c.RateLimitConfig.RPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitConfig.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "text-analyzer server starting...")

	if c.NoRedis {
		fmt.Fprintln(os.Stderr, "  Cache:   In-process (--no-redis)")
	} else {
		fmt.Fprintf(os.Stderr, "  Cache:   Redis (real, url: %s)\n", c.RedisURL)
	}
	fmt.Fprintf(os.Stderr, "  Cache TTL: %s\n", c.CacheTTL)

	fmt.Fprintf(os.Stderr, "  Database: %s (encrypted, key from DATABASE_KEY)\n", c.DatabasePath)
	fmt.Fprintln(os.Stderr, "  Auth:    HS256 bearer tokens (secret from JWT_SECRET)")
	fmt.Fprintf(os.Stderr, "  Listen:  %s\n", c.ListenAddr)
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
// Use this in main() when you want the application to fail fast on bad config.
func MustLoadConfig(noRedis bool, addr string) *Config {
	cfg, err := LoadConfig(noRedis, addr)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
