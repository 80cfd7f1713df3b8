package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfold/docgate/internal/models"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[models.Period]int64
	failAt map[models.Period]bool
	err    error
	calls  []models.Period
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{
		counts: make(map[models.Period]int64),
		failAt: make(map[models.Period]bool),
	}
}

func (f *fakeCounter) CheckWindow(_ context.Context, _ uuid.UUID, period models.Period, limit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, period)
	if f.err != nil && f.failAt[period] {
		return false, f.err
	}
	f.counts[period]++
	return f.counts[period] <= int64(limit), nil
}

func intPtr(i int) *int { return &i }

func defaultLimits() Limits {
	return Limits{PerMinute: 60, PerHour: 1000, PerDay: 10000}
}

func TestRateLimiter_WithinAllWindows(t *testing.T) {
	counter := newFakeCounter()
	rl := NewRateLimiter(counter, defaultLimits(), false)
	cred := &models.Credential{ID: uuid.New()}

	result := rl.Check(context.Background(), cred)

	assert.True(t, result.WithinLimit)
	assert.Empty(t, result.ExceededPeriod)
	assert.Equal(t, []models.Period{models.PeriodMinute, models.PeriodHour, models.PeriodDay}, counter.calls,
		"windows are checked tightest first")
}

func TestRateLimiter_MinuteExceeded(t *testing.T) {
	counter := newFakeCounter()
	rl := NewRateLimiter(counter, defaultLimits(), false)
	cred := &models.Credential{ID: uuid.New(), RateLimitPerMinute: intPtr(2)}

	for i := 0; i < 2; i++ {
		require.True(t, rl.Check(context.Background(), cred).WithinLimit)
	}

	result := rl.Check(context.Background(), cred)
	assert.False(t, result.WithinLimit)
	assert.Equal(t, models.PeriodMinute, result.ExceededPeriod)
	assert.Equal(t, 60, result.RetryAfter)
}

func TestRateLimiter_HourExceededShortCircuitsDay(t *testing.T) {
	counter := newFakeCounter()
	counter.counts[models.PeriodHour] = 5 // already at the ceiling
	rl := NewRateLimiter(counter, defaultLimits(), false)
	cred := &models.Credential{ID: uuid.New(), RateLimitPerHour: intPtr(5)}

	result := rl.Check(context.Background(), cred)

	assert.False(t, result.WithinLimit)
	assert.Equal(t, models.PeriodHour, result.ExceededPeriod)
	assert.Equal(t, 3600, result.RetryAfter)
	assert.NotContains(t, counter.calls, models.PeriodDay, "day window must not be consulted after an hour violation")
}

func TestRateLimiter_ZeroLimitIsUnbounded(t *testing.T) {
	counter := newFakeCounter()
	rl := NewRateLimiter(counter, defaultLimits(), false)
	cred := &models.Credential{
		ID:                 uuid.New(),
		RateLimitPerMinute: intPtr(0),
		RateLimitPerHour:   intPtr(0),
		RateLimitPerDay:    intPtr(0),
	}

	result := rl.Check(context.Background(), cred)

	assert.True(t, result.WithinLimit)
	assert.Empty(t, counter.calls, "unbounded windows skip the counter entirely")
}

func TestRateLimiter_FailOpenOnCounterError(t *testing.T) {
	counter := newFakeCounter()
	counter.err = assert.AnError
	counter.failAt[models.PeriodMinute] = true
	counter.failAt[models.PeriodHour] = true
	counter.failAt[models.PeriodDay] = true
	rl := NewRateLimiter(counter, defaultLimits(), false)

	result := rl.Check(context.Background(), &models.Credential{ID: uuid.New()})
	assert.True(t, result.WithinLimit, "infrastructure errors must not block traffic by default")
}

func TestRateLimiter_FailClosedWhenConfigured(t *testing.T) {
	counter := newFakeCounter()
	counter.err = assert.AnError
	counter.failAt[models.PeriodMinute] = true
	rl := NewRateLimiter(counter, defaultLimits(), true)

	result := rl.Check(context.Background(), &models.Credential{ID: uuid.New()})
	assert.False(t, result.WithinLimit)
	assert.Equal(t, models.PeriodMinute, result.ExceededPeriod)
}

// atomicCounter admits exactly `limit` increments per window, like the
// real increment-and-compare upsert.
type atomicCounter struct {
	count int64
}

func (a *atomicCounter) CheckWindow(_ context.Context, _ uuid.UUID, _ models.Period, limit int) (bool, error) {
	return atomic.AddInt64(&a.count, 1) <= int64(limit), nil
}

func TestRateLimiter_NoDoubleAdmissionOnLastSlot(t *testing.T) {
	// One unit of minute quota left; two concurrent requests race for it.
	counter := &atomicCounter{count: 0}
	rl := NewRateLimiter(counter, Limits{PerMinute: 1}, false)
	cred := &models.Credential{ID: uuid.New(), RateLimitPerHour: intPtr(0), RateLimitPerDay: intPtr(0)}

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Check(context.Background(), cred).WithinLimit {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), admitted, "exactly one request may take the last unit of quota")
}
