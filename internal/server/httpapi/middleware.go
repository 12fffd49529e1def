package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/evidencevault/vault/internal/logging"
)

// withLogging logs every request's method, path, status, and duration.
// It wraps ResponseWriter to observe the status code the handler chose.
func withLogging(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info(r.Context(), "http request",
			"method", r.Method, "path", r.URL.Path,
			"status", sw.status, "duration", time.Since(start).String())
	})
}

// withRecover converts a panicking handler into a 500 INTERNAL response
// instead of taking down the process.
func withRecover(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error(r.Context(), "panic handling request", "panic", p, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withCORS applies the configured allowlist. An empty allowlist disables
// CORS headers entirely; CORS/rate-limiting is named but not specified by
// spec.md §1 — this is a minimal, best-effort implementation.
func withCORS(allowlist []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowlist))
	for _, origin := range allowlist {
		allowed[strings.TrimSpace(origin)] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
