package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential represents one issued API key record.
// The plaintext key is never stored; only its SHA-256 hash.
type Credential struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	KeyHash            string     `json:"-" db:"key_hash"`
	KeyPrefix          string     `json:"key_prefix" db:"key_prefix"`
	ClientName         string     `json:"client_name" db:"client_name"`
	Description        string     `json:"description,omitempty" db:"description"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	RateLimitPerMinute *int       `json:"rate_limit_per_minute,omitempty" db:"rate_limit_per_minute"`
	RateLimitPerHour   *int       `json:"rate_limit_per_hour,omitempty" db:"rate_limit_per_hour"`
	RateLimitPerDay    *int       `json:"rate_limit_per_day,omitempty" db:"rate_limit_per_day"`
	TotalRequests      int64      `json:"total_requests" db:"total_requests"`
	LastUsedAt         *time.Time `json:"last_used_at" db:"last_used_at"` // Pointer to handle NULL
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	CreatedBy          string     `json:"created_by,omitempty" db:"created_by"`
}

// Expired reports whether the credential's expiry (if any) has passed.
// Expiry is terminal: once past, the credential never validates again.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
