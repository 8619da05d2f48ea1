package middleware

import (
	"context"
	"net/http"

	"github.com/tomasen/realip"

	"github.com/Decentr-net/mosaic/internal/api"
)

//go:generate mockgen -destination=./mock/ratelimit.go -package=mock -source=ratelimit.go

// Limiter decides if one more request identified by the key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects requests with 429 when limiter denies them.
// Requests are keyed by viewer id, or by client address for anonymous requests.
// Limiter errors do not block requests.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := ViewerFromContext(r.Context())
			if ok {
				key = "user:" + key
			} else {
				key = "ip:" + realip.FromRequest(r)
			}

			allowed, err := l.Allow(r.Context(), key)
			if err != nil {
				api.GetLogger(r.Context()).WithError(err).Error("failed to check rate limit")
			}

			if err == nil && !allowed {
				api.WriteError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
