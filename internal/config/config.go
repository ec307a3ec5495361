package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Resolution
	MaxDepth      int
	SkipMalformed bool

	// Remote retrieval
	FetchAttempts     int
	FetchTimeout      time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	RequestsPerSecond float64
	MaxBodyBytes      int64

	// Stealth fallback
	BrowserEnabled    bool
	BrowserNavTimeout time.Duration

	IPEchoURL string // "off" disables the startup lookup

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads configuration from the environment. Values from an optional
// .env file in the working directory never override variables already set.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "ignoring unreadable .env: %v\n", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	cfg := Config{
		Port: envOr("PORT", "8080"),

		MaxDepth:      envInt("SITEMAP_MAX_DEPTH", 20),
		SkipMalformed: envBool("SITEMAP_SKIP_MALFORMED", false),

		FetchAttempts:     envInt("SITEMAP_FETCH_ATTEMPTS", 3),
		FetchTimeout:      envDuration("SITEMAP_FETCH_TIMEOUT", 15*time.Second),
		BackoffMin:        envDuration("SITEMAP_BACKOFF_MIN", 2*time.Second),
		BackoffMax:        envDuration("SITEMAP_BACKOFF_MAX", 5*time.Second),
		RequestsPerSecond: envFloat("SITEMAP_REQUESTS_PER_SECOND", 2),
		MaxBodyBytes:      envInt64("SITEMAP_MAX_BODY_BYTES", 52428800), // 50MB

		BrowserEnabled:    envBool("SITEMAP_BROWSER_ENABLED", true),
		BrowserNavTimeout: envDuration("SITEMAP_BROWSER_NAV_TIMEOUT", 30*time.Second),

		IPEchoURL: envOr("SITEMAP_IP_ECHO_URL", "https://api.ipify.org"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "pretty"),
		LogFile:   os.Getenv("LOG_FILE"),
	}

	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 20
	}
	if cfg.FetchAttempts <= 0 {
		cfg.FetchAttempts = 3
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 52428800
	}
	if cfg.BrowserNavTimeout <= 0 {
		cfg.BrowserNavTimeout = 30 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.BackoffMin < 0 || c.BackoffMax < c.BackoffMin {
		return fmt.Errorf("SITEMAP_BACKOFF_MIN (%s) must be non-negative and not exceed SITEMAP_BACKOFF_MAX (%s)", c.BackoffMin, c.BackoffMax)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("SITEMAP_REQUESTS_PER_SECOND must not be negative")
	}
	switch c.LogFormat {
	case "json", "pretty":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or pretty, got %q", c.LogFormat)
	}
	return nil
}

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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
