package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/riverfold/docgate/internal/models"
)

// FindByHash returns the active credential record for a key hash, or nil
// when no active record matches. Inactive records are filtered here so a
// revoked key behaves exactly like an unknown one.
func (db *DB) FindByHash(ctx context.Context, keyHash string) (*models.Credential, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, key_hash, key_prefix, client_name, COALESCE(description, ''),
		       is_active, expires_at,
		       rate_limit_per_minute, rate_limit_per_hour, rate_limit_per_day,
		       total_requests, last_used_at, created_at, created_by
		FROM api_keys
		WHERE key_hash = $1 AND is_active = true
	`, keyHash)

	var c models.Credential
	err := row.Scan(
		&c.ID, &c.KeyHash, &c.KeyPrefix, &c.ClientName, &c.Description,
		&c.IsActive, &c.ExpiresAt,
		&c.RateLimitPerMinute, &c.RateLimitPerHour, &c.RateLimitPerDay,
		&c.TotalRequests, &c.LastUsedAt, &c.CreatedAt, &c.CreatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch credential: %w", err)
	}
	return &c, nil
}

// CheckWindow atomically increments the fixed-window counter for the
// credential and reports whether the incremented count is still within the
// limit. The upsert makes increment-and-compare a single linearizable
// statement, so two concurrent requests cannot both claim the last unit.
func (db *DB) CheckWindow(ctx context.Context, credentialID uuid.UUID, period models.Period, limit int) (bool, error) {
	windowStart, err := truncateToWindow(time.Now().UTC(), period)
	if err != nil {
		return false, err
	}

	var count int64
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO api_key_rate_counters (api_key_id, period, window_start, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (api_key_id, period, window_start)
		DO UPDATE SET count = api_key_rate_counters.count + 1
		RETURNING count
	`, credentialID, string(period), windowStart).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to increment %s window counter: %w", period, err)
	}

	return count <= int64(limit), nil
}

// InsertUsageLog appends one usage-log row. Callers treat failures as
// telemetry-only and never surface them to the client.
func (db *DB) InsertUsageLog(ctx context.Context, entry models.UsageLogEntry) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO api_key_usage
			(api_key_id, endpoint, method, status_code, ip_address, user_agent, response_time_ms, error_message)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''))
	`, entry.CredentialID, entry.Endpoint, entry.Method, entry.StatusCode,
		entry.IPAddress, entry.UserAgent, entry.ResponseTime.Milliseconds(), entry.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to insert usage log: %w", err)
	}
	return nil
}

// FetchTotalRequests returns the persisted cumulative request count.
func (db *DB) FetchTotalRequests(ctx context.Context, credentialID uuid.UUID) (int64, error) {
	var total int64
	err := db.Pool.QueryRow(ctx,
		`SELECT total_requests FROM api_keys WHERE id = $1`, credentialID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch total requests: %w", err)
	}
	return total, nil
}

// UpdateUsage writes the batched last-used timestamp and cumulative total.
func (db *DB) UpdateUsage(ctx context.Context, credentialID uuid.UUID, lastUsedAt time.Time, totalRequests int64) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = $2, total_requests = $3 WHERE id = $1
	`, credentialID, lastUsedAt, totalRequests)
	if err != nil {
		return fmt.Errorf("failed to update credential usage: %w", err)
	}
	return nil
}

// FetchUsageStats returns per-day request and error counts for the last
// N days. The gateway exposes no HTTP surface for this; it exists for the
// external admin tooling that shares the schema.
func (db *DB) FetchUsageStats(ctx context.Context, credentialID uuid.UUID, days int) ([]models.DailyUsage, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
		       COUNT(*) AS requests,
		       COUNT(*) FILTER (WHERE status_code >= 400) AS errors
		FROM api_key_usage
		WHERE api_key_id = $1 AND created_at > NOW() - ($2 || ' days')::interval
		GROUP BY day
		ORDER BY day DESC
	`, credentialID.String(), days)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch usage stats: %w", err)
	}
	defer rows.Close()

	var stats []models.DailyUsage
	for rows.Next() {
		var d models.DailyUsage
		if err := rows.Scan(&d.Day, &d.Requests, &d.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan usage stats: %w", err)
		}
		stats = append(stats, d)
	}
	return stats, rows.Err()
}

// PruneCounters deletes rate-counter windows older than the cutoff. Day
// windows are the longest lived, so anything older than 48h is dead weight.
func (db *DB) PruneCounters(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM api_key_rate_counters WHERE window_start < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune rate counters: %w", err)
	}
	return tag.RowsAffected(), nil
}

func truncateToWindow(now time.Time, period models.Period) (time.Time, error) {
	switch period {
	case models.PeriodMinute:
		return now.Truncate(time.Minute), nil
	case models.PeriodHour:
		return now.Truncate(time.Hour), nil
	case models.PeriodDay:
		return now.Truncate(24 * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("unknown rate limit period %q", period)
}
