// Package redwin implements a Redis-backed fixed-window rate counter.
// It is an alternative to the Postgres counter table for deployments that
// already run Redis and want quota state off the primary database.
package redwin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/riverfold/docgate/internal/models"
)

// Counter enforces per-credential fixed windows using Redis INCR.
type Counter struct {
	client  *redis.Client
	baseKey string
}

// New creates a Counter from a Redis URL and verifies connectivity.
func New(redisURL, baseKey string) (*Counter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Counter{client: client, baseKey: baseKey}, nil
}

// CheckWindow increments the fixed-window counter for the credential and
// reports whether the new count is within the limit. INCR is atomic, so
// concurrent requests observe strictly increasing counts and only one of
// them can land exactly on the limit.
func (c *Counter) CheckWindow(ctx context.Context, credentialID uuid.UUID, period models.Period, limit int) (bool, error) {
	window := time.Duration(period.Seconds()) * time.Second
	bucket := time.Now().Unix() / int64(period.Seconds())
	key := fmt.Sprintf("%s:%s:%s:%d", c.baseKey, credentialID, period, bucket)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment %s window counter: %w", period, err)
	}

	// Set expiry on first increment so dead windows clean themselves up.
	if count == 1 {
		c.client.Expire(ctx, key, 2*window)
	}

	return count <= int64(limit), nil
}

// Close closes the Redis client
func (c *Counter) Close() error {
	return c.client.Close()
}
