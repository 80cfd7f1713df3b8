package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/riverfold/docgate/internal/models"
)

// errorResponse is the machine-readable error body for gateway rejections.
type errorResponse struct {
	Error      bool              `json:"error"`
	ErrorType  string            `json:"error_type"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeAuthError sends a 401 with error_type "authentication_error".
func writeAuthError(w http.ResponseWriter, message string, details map[string]string) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Error:     true,
		ErrorType: "authentication_error",
		Message:   message,
		Details:   details,
	})
}

// writeRateLimitError sends a 429 with error_type "rate_limit_exceeded",
// a Retry-After hint, and the absolute reset time.
func writeRateLimitError(w http.ResponseWriter, result models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Unix()+int64(result.RetryAfter), 10))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:      true,
		ErrorType:  "rate_limit_exceeded",
		Message:    fmt.Sprintf("Rate limit exceeded for %s", result.ExceededPeriod),
		RetryAfter: result.RetryAfter,
	})
}
