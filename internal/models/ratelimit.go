package models

// Period is one of the fixed rate-limit windows.
type Period string

const (
	PeriodMinute Period = "minute"
	PeriodHour   Period = "hour"
	PeriodDay    Period = "day"
)

// Seconds returns the fixed reset duration reported for the period.
// These are deliberately not computed from the actual window remainder.
func (p Period) Seconds() int {
	switch p {
	case PeriodMinute:
		return 60
	case PeriodHour:
		return 3600
	case PeriodDay:
		return 86400
	}
	return 0
}

// RateLimitResult is the transient outcome of a rate-limit check.
// It is computed fresh per request and never persisted.
type RateLimitResult struct {
	WithinLimit    bool
	ExceededPeriod Period
	RetryAfter     int // seconds
}
