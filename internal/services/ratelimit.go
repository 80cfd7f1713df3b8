package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/riverfold/docgate/internal/models"
)

// WindowCounter is the atomic increment-and-compare primitive the limiter
// runs on. Implementations: the Postgres counter table (pkg/database) and
// the Redis fixed-window counter (pkg/redwin).
type WindowCounter interface {
	CheckWindow(ctx context.Context, credentialID uuid.UUID, period models.Period, limit int) (bool, error)
}

// Limits are the tier-default ceilings applied when a credential record has
// no explicit limit for a window. Zero or negative means unbounded.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// RateLimiter evaluates a credential against its minute, hour, and day
// ceilings, in that order, short-circuiting on the first violation so the
// tightest, most actionable window is reported first.
type RateLimiter struct {
	counter  WindowCounter
	defaults Limits

	// failClosed flips the infrastructure-error behavior from "allow the
	// request" to "reject it". Defaults to fail-open: availability of the
	// service is deliberately prioritized over strict quota enforcement
	// during store outages.
	failClosed bool
}

func NewRateLimiter(counter WindowCounter, defaults Limits, failClosed bool) *RateLimiter {
	return &RateLimiter{
		counter:    counter,
		defaults:   defaults,
		failClosed: failClosed,
	}
}

func within() models.RateLimitResult {
	return models.RateLimitResult{WithinLimit: true}
}

func exceeded(period models.Period) models.RateLimitResult {
	return models.RateLimitResult{
		WithinLimit:    false,
		ExceededPeriod: period,
		RetryAfter:     period.Seconds(),
	}
}

// Check runs the three window checks for the credential. Each check is a
// single atomic increment-and-compare against the counter backend, so
// concurrent requests for the same credential cannot both slip past the
// same boundary.
func (rl *RateLimiter) Check(ctx context.Context, cred *models.Credential) models.RateLimitResult {
	checks := []struct {
		period models.Period
		limit  int
	}{
		{models.PeriodMinute, effectiveLimit(cred.RateLimitPerMinute, rl.defaults.PerMinute)},
		{models.PeriodHour, effectiveLimit(cred.RateLimitPerHour, rl.defaults.PerHour)},
		{models.PeriodDay, effectiveLimit(cred.RateLimitPerDay, rl.defaults.PerDay)},
	}

	for _, c := range checks {
		if c.limit <= 0 {
			// Unbounded window.
			continue
		}

		ok, err := rl.counter.CheckWindow(ctx, cred.ID, c.period, c.limit)
		if err != nil {
			if rl.failClosed {
				log.Error().Err(err).
					Str("period", string(c.period)).
					Msg("Rate limit check failed, rejecting (fail-closed)")
				return exceeded(c.period)
			}
			log.Warn().Err(err).
				Str("period", string(c.period)).
				Msg("Rate limit check failed, allowing request (fail-open)")
			continue
		}

		if !ok {
			log.Warn().
				Str("key_id", cred.ID.String()).
				Str("client", cred.ClientName).
				Str("period", string(c.period)).
				Msg("Rate limit exceeded")
			return exceeded(c.period)
		}
	}

	return within()
}

// effectiveLimit picks the credential's own ceiling when set, otherwise the
// tier default. A nil record value means "use tier default"; an explicit
// zero means unbounded.
func effectiveLimit(own *int, def int) int {
	if own != nil {
		return *own
	}
	return def
}
