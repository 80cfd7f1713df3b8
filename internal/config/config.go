package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Upstream document-search service. Requests accepted by the gateway
	// are proxied here. Optional; without it the protected subtree answers
	// with a "no upstream configured" error.
	UpstreamURL string

	// Authentication
	AuthEnabled bool
	APIKeys     []string
	KeyNames    map[string]string // plaintext key -> client name

	// Database mode (enabled when DatabaseURL is set)
	DatabaseURL string

	// Redis (optional rate-limit counter backend)
	RedisURL string

	// Credential cache
	CacheValidityPeriod time.Duration
	CacheCapacity       int

	// Usage recording
	BatchUpdateThreshold int
	UsageQueueSize       int
	UsageWriteRate       int // usage-log inserts per second

	// Rate limiting tier defaults (applied when a key has no explicit limit)
	RateLimitPerMinute  int
	RateLimitPerHour    int
	RateLimitPerDay     int
	RateLimitFailClosed bool
}

func Load() (*Config, error) {
	// Try loading from current directory first, then parent.
	// We ignore errors here as we might be running in an environment
	// where env vars are set directly (e.g. docker/k8s).
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		UpstreamURL: getEnv("UPSTREAM_URL", ""),

		AuthEnabled: getBoolEnv("AUTH_ENABLED", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		CacheValidityPeriod: getDurationEnv("CACHE_VALIDITY_PERIOD", 300*time.Second),
		CacheCapacity:       getIntEnv("CACHE_CAPACITY", 100),

		BatchUpdateThreshold: getIntEnv("BATCH_UPDATE_THRESHOLD", 10),
		UsageQueueSize:       getIntEnv("USAGE_QUEUE_SIZE", 1024),
		UsageWriteRate:       getIntEnv("USAGE_WRITE_RATE", 200),

		RateLimitPerMinute:  getIntEnv("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitPerHour:    getIntEnv("RATE_LIMIT_PER_HOUR", 1000),
		RateLimitPerDay:     getIntEnv("RATE_LIMIT_PER_DAY", 10000),
		RateLimitFailClosed: getBoolEnv("RATE_LIMIT_FAIL_CLOSED", false),
	}

	// Parse API keys (comma-separated)
	if keys := os.Getenv("API_KEYS"); keys != "" {
		cfg.APIKeys = splitAndTrim(keys, ",")
	}

	// Parse optional key:name pairs
	cfg.KeyNames = make(map[string]string)
	if pairs := os.Getenv("API_KEY_NAMES"); pairs != "" {
		for _, pair := range splitAndTrim(pairs, ",") {
			key, name, ok := strings.Cut(pair, ":")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			name = strings.TrimSpace(name)
			if key != "" && name != "" {
				cfg.KeyNames[key] = name
			}
		}
	}

	return cfg, nil
}

// DBMode reports whether database-backed validation is configured.
func (c *Config) DBMode() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Allow plain seconds (e.g. "300")
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
