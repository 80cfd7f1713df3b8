package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/riverfold/docgate/internal/models"
)

// UsageStore is the persistence surface the recorder writes to.
type UsageStore interface {
	InsertUsageLog(ctx context.Context, entry models.UsageLogEntry) error
	FetchTotalRequests(ctx context.Context, credentialID uuid.UUID) (int64, error)
	UpdateUsage(ctx context.Context, credentialID uuid.UUID, lastUsedAt time.Time, totalRequests int64) error
}

// Recorder handles all usage telemetry: an append-only log row per request
// and a batched last-used/total-requests update per credential. Everything
// here is best-effort; nothing on this path ever blocks or fails a request.
type Recorder struct {
	store     UsageStore
	queue     chan models.UsageLogEntry
	writeRate *rate.Limiter
	threshold int

	mu      sync.Mutex
	pending map[uuid.UUID]int

	now func() time.Time
}

// NewRecorder creates a recorder with a bounded log queue. threshold is the
// number of requests accumulated per credential before one aggregated store
// update is flushed; writesPerSecond paces log inserts so request bursts
// cannot flood the store.
func NewRecorder(store UsageStore, queueSize, threshold, writesPerSecond int) *Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if threshold <= 0 {
		threshold = 10
	}
	if writesPerSecond <= 0 {
		writesPerSecond = 200
	}
	return &Recorder{
		store:     store,
		queue:     make(chan models.UsageLogEntry, queueSize),
		writeRate: rate.NewLimiter(rate.Limit(writesPerSecond), writesPerSecond),
		threshold: threshold,
		pending:   make(map[uuid.UUID]int),
		now:       time.Now,
	}
}

// Start launches the log writer goroutine. It drains the queue until ctx is
// cancelled; entries still queued at shutdown are dropped, which is fine
// for advisory telemetry.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case entry := <-r.queue:
				if err := r.writeRate.Wait(ctx); err != nil {
					return
				}
				writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := r.store.InsertUsageLog(writeCtx, entry); err != nil {
					log.Error().Err(err).Msg("Failed to write usage log")
				}
				cancel()
			}
		}
	}()
}

// Record enqueues one usage-log entry without blocking. When the queue is
// full the entry is dropped with a local warning.
func (r *Recorder) Record(entry models.UsageLogEntry) {
	select {
	case r.queue <- entry:
	default:
		log.Warn().
			Str("key_id", entry.CredentialID).
			Str("endpoint", entry.Endpoint).
			Msg("Usage log queue full, dropping entry")
	}
}

// BumpLastUsed increments the in-memory per-credential counter and, once it
// reaches the batching threshold, flushes one aggregated update carrying
// the accumulated count and resets the counter. The counters are not
// persisted: a restart loses at most threshold-1 increments, which is an
// accepted tradeoff for advisory counters. The flush itself runs in a
// goroutine so the request path never waits on the store.
func (r *Recorder) BumpLastUsed(credentialID uuid.UUID) {
	r.mu.Lock()
	r.pending[credentialID]++
	count := r.pending[credentialID]
	if count < r.threshold {
		r.mu.Unlock()
		return
	}
	r.pending[credentialID] = 0
	r.mu.Unlock()

	go r.flush(credentialID, count)
}

func (r *Recorder) flush(credentialID uuid.UUID, count int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	total, err := r.store.FetchTotalRequests(ctx, credentialID)
	if err != nil {
		log.Error().Err(err).Str("key_id", credentialID.String()).Msg("Failed to fetch total requests for flush")
		return
	}

	if err := r.store.UpdateUsage(ctx, credentialID, r.now(), total+int64(count)); err != nil {
		log.Error().Err(err).Str("key_id", credentialID.String()).Msg("Failed to flush usage update")
		return
	}

	log.Debug().
		Str("key_id", credentialID.String()).
		Int("batched", count).
		Msg("Flushed batched usage update")
}

// Pending returns the in-memory counter for a credential. Used by tests.
func (r *Recorder) Pending(credentialID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[credentialID]
}
