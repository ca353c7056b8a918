package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Logging returns middleware that writes a structured access log per request.
// Run it inside otelhttp so r.Context() carries the span and the
// TraceContextHandler can attach trace_id/span_id to each record.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(rw, r)

		slog.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
