// Package middleware provides the HTTP middleware chain: request IDs, auth,
// per-caller rate limiting, metrics, and request logging.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/clipiq/feed/internal/api/response"
)

type contextKey string

// UserIDContextKey holds the authenticated caller's user ID (uuid.UUID).
const UserIDContextKey contextKey = "user_id"

const userIDHeader = "X-User-ID"

// Auth validates the static service API key from the Authorization header
// and resolves the acting user from X-User-ID. Upstream gateways own real
// end-user authentication; this service trusts the forwarded user ID once
// the service key checks out.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.RespondUnauthorized(w, "Missing Authorization header")

				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.RespondUnauthorized(w, "Invalid Authorization header format. Expected: Bearer <api-key>")

				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(apiKey)) != 1 {
				response.RespondUnauthorized(w, "Invalid API key")

				return
			}

			userID, err := uuid.Parse(r.Header.Get(userIDHeader))
			if err != nil {
				response.RespondUnauthorized(w, "Missing or invalid X-User-ID header")

				return
			}

			ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user ID set by Auth.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)

	return userID, ok
}
