package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/clipiq/feed/internal/observability"
)

// requestIDHeader is read from the request and echoed on the response.
const requestIDHeader = "X-Request-ID"

// RequestID makes sure every request carries an ID before anything else in
// the chain runs. A client-supplied X-Request-ID wins so the ID stays stable
// across service hops; otherwise a fresh UUIDv7 is minted. The ID lands in
// the request context for log correlation and in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}

		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), observability.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
