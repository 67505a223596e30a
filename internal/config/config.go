package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config holds the process configuration for the ledger service.
type Config struct {
	Environment string
	Addr        string

	MaxBodyBytes int64

	// RedisAddr enables the gateway rate limiter; empty disables it.
	RedisAddr           string
	RateLimitCapacity   int
	RateLimitRefillRate float64

	AuditEnabled bool
}

// Load reads configuration from environment variables. Only APP_ENV is
// required; everything else has a sensible default.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:         os.Getenv("APP_ENV"),
		Addr:                getenv("API_ADDR", ":8080"),
		MaxBodyBytes:        int64(getenvInt("API_MAX_BODY_BYTES", 1<<20)),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RateLimitCapacity:   getenvInt("API_RATE_LIMIT_CAPACITY", 20),
		RateLimitRefillRate: float64(getenvInt("API_RATE_LIMIT_REFILL_PER_SEC", 10)),
		AuditEnabled:        getenvBool("AUDIT_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var missing []string

	if c.Environment == "" {
		missing = append(missing, "APP_ENV")
	}
	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	if c.MaxBodyBytes <= 0 {
		return errors.New("API_MAX_BODY_BYTES must be positive")
	}
	if c.RedisAddr != "" {
		if c.RateLimitCapacity <= 0 {
			return errors.New("API_RATE_LIMIT_CAPACITY must be positive when REDIS_ADDR is set")
		}
		if c.RateLimitRefillRate <= 0 {
			return errors.New("API_RATE_LIMIT_REFILL_PER_SEC must be positive when REDIS_ADDR is set")
		}
	}

	return nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
