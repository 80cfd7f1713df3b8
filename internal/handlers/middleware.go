package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/riverfold/docgate/internal/models"
	"github.com/riverfold/docgate/internal/services"
)

type contextKey string

const (
	// ClientNameContextKey carries the resolved owner label.
	ClientNameContextKey contextKey = "client_name"
	// CredentialIDContextKey carries the credential ID in database mode.
	CredentialIDContextKey contextKey = "api_key_id"
)

// publicPaths bypass authentication entirely.
var publicPaths = map[string]struct{}{
	"/":       {},
	"/health": {},
}

// Gateway authenticates every inbound request, enforces per-credential
// quotas, and records usage, then hands the request to the downstream
// handler. Exactly one validation mode is active: static (fixed key list,
// no quotas) or database (cache + store lookup, rate limits, usage log).
type Gateway struct {
	static   *services.StaticValidator
	db       *services.DBValidator
	limiter  *services.RateLimiter
	recorder *services.Recorder
}

// NewStaticGateway builds a gateway in static validation mode.
func NewStaticGateway(static *services.StaticValidator) *Gateway {
	return &Gateway{static: static}
}

// NewDBGateway builds a gateway in database validation mode.
func NewDBGateway(validator *services.DBValidator, limiter *services.RateLimiter, recorder *services.Recorder) *Gateway {
	return &Gateway{db: validator, limiter: limiter, recorder: recorder}
}

// Middleware is the gateway's http middleware. Rejections short-circuit
// before the downstream handler; telemetry never blocks the response.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		if g.db == nil && !g.static.Enabled() {
			// Authentication disabled (or downgraded at startup).
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, "Missing authentication credentials", map[string]string{
				"required_header": "Authorization",
				"format":          "Authorization: Bearer <api_key>",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			received := "none"
			if fields := strings.Fields(authHeader); len(fields) > 0 {
				received = fields[0]
			}
			writeAuthError(w, "Invalid authentication format", map[string]string{
				"expected_format": "Authorization: Bearer <api_key>",
				"received_format": received,
			})
			return
		}

		key := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		if g.db != nil {
			g.serveDB(w, r, key, next)
			return
		}
		g.serveStatic(w, r, key, next)
	})
}

// serveStatic validates against the fixed key list. No rate limiting and
// no persistence in this mode.
func (g *Gateway) serveStatic(w http.ResponseWriter, r *http.Request, key string, next http.Handler) {
	valid, clientName := g.static.Validate(key)
	if !valid {
		log.Warn().
			Str("remote", r.RemoteAddr).
			Str("path", r.URL.Path).
			Msg("Authentication failed")
		writeAuthError(w, "Invalid API key", nil)
		return
	}

	log.Info().
		Str("client", clientName).
		Str("path", r.URL.Path).
		Msg("Authenticated request")

	ctx := context.WithValue(r.Context(), ClientNameContextKey, clientName)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// serveDB runs the full pipeline: cache/store validation, the three rate
// windows, batched usage counters, and a usage-log entry for the final
// outcome of every request, rejected ones included.
func (g *Gateway) serveDB(w http.ResponseWriter, r *http.Request, key string, next http.Handler) {
	start := time.Now()

	valid, record := g.db.Validate(r.Context(), key)
	if !valid {
		log.Warn().
			Str("remote", r.RemoteAddr).
			Str("path", r.URL.Path).
			Msg("Authentication failed")
		g.recorder.Record(g.entry(r, models.UnknownCredentialID, http.StatusUnauthorized, time.Since(start), "Invalid or expired API key"))
		writeAuthError(w, "Invalid or expired API key", nil)
		return
	}

	result := g.limiter.Check(r.Context(), record)
	if !result.WithinLimit {
		g.recorder.Record(g.entry(r, record.ID.String(), http.StatusTooManyRequests, time.Since(start),
			"Rate limit exceeded: "+string(result.ExceededPeriod)))
		writeRateLimitError(w, result)
		return
	}

	log.Info().
		Str("client", record.ClientName).
		Str("path", r.URL.Path).
		Msg("Authenticated request")

	ctx := context.WithValue(r.Context(), ClientNameContextKey, record.ClientName)
	ctx = context.WithValue(ctx, CredentialIDContextKey, record.ID)

	g.recorder.BumpLastUsed(record.ID)

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	defer func() {
		status := ww.Status()
		if rec := recover(); rec != nil {
			// Best-known status for a request that blew up downstream.
			if status == 0 {
				status = http.StatusInternalServerError
			}
			g.recorder.Record(g.entry(r, record.ID.String(), status, time.Since(start), "panic in downstream handler"))
			panic(rec)
		}
		if status == 0 {
			status = http.StatusOK
		}
		g.recorder.Record(g.entry(r, record.ID.String(), status, time.Since(start), ""))
	}()

	next.ServeHTTP(ww, r.WithContext(ctx))
}

func (g *Gateway) entry(r *http.Request, credentialID string, status int, elapsed time.Duration, errMsg string) models.UsageLogEntry {
	return models.UsageLogEntry{
		CredentialID: credentialID,
		Endpoint:     r.URL.Path,
		Method:       r.Method,
		StatusCode:   status,
		IPAddress:    r.RemoteAddr,
		UserAgent:    r.UserAgent(),
		ResponseTime: elapsed,
		ErrorMessage: errMsg,
	}
}

// GetClientName returns the owner label attached by the gateway.
func GetClientName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(ClientNameContextKey).(string)
	return name, ok
}

// GetCredentialID returns the credential ID attached in database mode.
func GetCredentialID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(CredentialIDContextKey).(uuid.UUID)
	return id, ok
}
