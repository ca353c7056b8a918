package middleware

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/clipiq/feed/internal/api/response"
)

// RateLimit returns middleware enforcing a per-user token bucket on feed
// requests. rps is the sustained rate; burst allows short spikes. Requires
// Auth to have run so the user ID is in context; unauthenticated requests
// pass through for Auth to reject.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiters := struct {
		sync.Mutex
		byUser map[uuid.UUID]*rate.Limiter
	}{byUser: make(map[uuid.UUID]*rate.Limiter)}

	limiterFor := func(userID uuid.UUID) *rate.Limiter {
		limiters.Lock()
		defer limiters.Unlock()

		l, ok := limiters.byUser[userID]
		if !ok {
			l = rate.NewLimiter(rate.Limit(rps), burst)
			limiters.byUser[userID] = l
		}

		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)

				return
			}

			if !limiterFor(userID).Allow() {
				response.RespondTooManyRequests(w, "Feed request rate limit exceeded")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
