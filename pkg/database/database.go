package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// The gateway issues short point queries on the hot path; keep a
	// generous pool so rate-limit checks never queue behind usage writes.
	config.MaxConns = 50
	config.MinConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate creates the credential tables used by the gateway. Keys are
// issued and revoked by external admin tooling writing into these tables;
// the gateway only reads records and appends usage rows.
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		// Credential records. key_hash is the SHA-256 of the plaintext
		// key; the plaintext itself is never stored.
		`CREATE TABLE IF NOT EXISTS api_keys (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			key_hash TEXT NOT NULL UNIQUE,
			key_prefix TEXT NOT NULL,
			client_name TEXT NOT NULL,
			description TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			expires_at TIMESTAMPTZ,
			rate_limit_per_minute INT,
			rate_limit_per_hour INT,
			rate_limit_per_day INT,
			total_requests BIGINT NOT NULL DEFAULT 0,
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_by TEXT NOT NULL DEFAULT 'admin'
		);`,

		// Append-only usage log. api_key_id is TEXT so failed
		// authentications can be recorded under the "unknown" sentinel.
		`CREATE TABLE IF NOT EXISTS api_key_usage (
			id BIGSERIAL PRIMARY KEY,
			api_key_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			status_code INT NOT NULL,
			ip_address TEXT,
			user_agent TEXT,
			response_time_ms BIGINT,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,

		// Fixed-window rate counters. One row per (key, period, window);
		// the increment-and-compare upsert in CheckWindow keeps concurrent
		// requests from double-spending the last unit of quota.
		`CREATE TABLE IF NOT EXISTS api_key_rate_counters (
			api_key_id UUID NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
			period TEXT NOT NULL,
			window_start TIMESTAMPTZ NOT NULL,
			count BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (api_key_id, period, window_start)
		);`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_api_keys_key_hash ON api_keys(key_hash) WHERE is_active = true;`,
		`CREATE INDEX IF NOT EXISTS idx_api_key_usage_key_time ON api_key_usage(api_key_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_api_key_rate_counters_window ON api_key_rate_counters(window_start);`,
	}

	for _, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w\nQuery: %s", err, migration)
		}
	}

	return nil
}
