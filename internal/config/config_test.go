package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.AuthEnabled)
	assert.False(t, cfg.DBMode())
	assert.Equal(t, 300*time.Second, cfg.CacheValidityPeriod)
	assert.Equal(t, 100, cfg.CacheCapacity)
	assert.Equal(t, 10, cfg.BatchUpdateThreshold)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 1000, cfg.RateLimitPerHour)
	assert.Equal(t, 10000, cfg.RateLimitPerDay)
	assert.False(t, cfg.RateLimitFailClosed)
}

func TestLoad_StaticKeys(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("API_KEYS", "key-a, key-b ,key-c")
	t.Setenv("API_KEY_NAMES", "key-a:ClientA, key-c:ClientC, malformed")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, []string{"key-a", "key-b", "key-c"}, cfg.APIKeys)
	assert.Equal(t, map[string]string{"key-a": "ClientA", "key-c": "ClientC"}, cfg.KeyNames)
}

func TestLoad_DBMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/docgate")
	t.Setenv("CACHE_VALIDITY_PERIOD", "120")
	t.Setenv("BATCH_UPDATE_THRESHOLD", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.DBMode())
	assert.Equal(t, 120*time.Second, cfg.CacheValidityPeriod, "bare integers are read as seconds")
	assert.Equal(t, 5, cfg.BatchUpdateThreshold)
}

func TestLoad_DurationSyntax(t *testing.T) {
	t.Setenv("CACHE_VALIDITY_PERIOD", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.CacheValidityPeriod)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_CAPACITY", "not-a-number")
	t.Setenv("AUTH_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.CacheCapacity)
	assert.False(t, cfg.AuthEnabled)
}
