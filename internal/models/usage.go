package models

import "time"

// UnknownCredentialID is logged when authentication itself failed and no
// credential could be resolved.
const UnknownCredentialID = "unknown"

// UsageLogEntry is one append-only row describing a completed or rejected
// request. Ownership transfers to the store once written.
type UsageLogEntry struct {
	CredentialID string        `json:"api_key_id" db:"api_key_id"`
	Endpoint     string        `json:"endpoint" db:"endpoint"`
	Method       string        `json:"method" db:"method"`
	StatusCode   int           `json:"status_code" db:"status_code"`
	IPAddress    string        `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    string        `json:"user_agent,omitempty" db:"user_agent"`
	ResponseTime time.Duration `json:"response_time" db:"response_time_ms"`
	ErrorMessage string        `json:"error_message,omitempty" db:"error_message"`
}

// DailyUsage is one day's aggregated request counts for a credential.
type DailyUsage struct {
	Day      time.Time `json:"day" db:"day"`
	Requests int64     `json:"requests" db:"requests"`
	Errors   int64     `json:"errors" db:"errors"`
}
