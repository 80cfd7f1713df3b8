package handlers

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/zerolog/log"
)

// Health is the unauthenticated liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Root returns basic service info. Public, like the health probe.
func Root(environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service":     "docgate",
			"environment": environment,
		})
	}
}

// NewUpstreamProxy returns the downstream handler: a reverse proxy to the
// document-search service. The gateway never inspects what it proxies;
// retrieval is somebody else's problem.
func NewUpstreamProxy(upstreamURL string) (http.Handler, error) {
	target, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Upstream request failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":      true,
			"error_type": "upstream_error",
			"message":    "Document search service is unreachable",
		})
	}
	return proxy, nil
}

// NoUpstream answers protected routes when no upstream is configured,
// keeping the gateway runnable standalone.
func NoUpstream(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusBadGateway, map[string]any{
		"error":      true,
		"error_type": "upstream_error",
		"message":    "No upstream document search service configured",
	})
}
