package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter is a pluggable pre-handler hook. The send, poll and consume
// handlers call Allow with the request's routing token once the body has
// been decoded; returning false causes the request to be rejected with 429
// before the token is validated or the store is touched. Endpoints that
// carry no token do not consult it.
type RateLimiter interface {
	Allow(token string) bool
}

// noopRateLimiter allows every request. It is the default when no
// RateLimiter is configured.
type noopRateLimiter struct{}

func (noopRateLimiter) Allow(string) bool { return true }

// writeJSON encodes v as the response body with the given status code. It
// disables HTML escaping so hex tokens and base64 blobs round-trip without
// being mangled, matching how the rest of the API treats opaque strings.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, field string) {
	writeJSON(w, status, ErrorResponse{Error: message, Field: field})
}

// statusRecorder captures the status code written by a handler so the
// logging middleware can report it without intercepting the body.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLoggingMiddleware logs only the method, path, resulting status code
// and duration of each request. It does not read the request body, so no
// token prefix appears in this log line. It never logs ciphertext, nonces,
// sender public keys, or full tokens - a privacy invariant of the relay, not
// a convenience.
func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		logrus.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request handled")
	})
}

func tokenPreview(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
