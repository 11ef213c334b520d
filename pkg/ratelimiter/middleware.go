package ratelimiter

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/devicetrust/pkg/clientip"
)

// KeyFunc derives the bucket key for a request.
type KeyFunc func(*http.Request) string

// ByClientIP buckets requests per originating client address.
func ByClientIP(r *http.Request) string {
	return clientip.GetIP(r)
}

// Middleware enforces the limiter per request key. Denied requests get
// a 429 with Retry-After; limiter store failures fail open, since
// shedding all traffic on a limiter outage is worse than not limiting.
func Middleware(limiter RateLimiter, key KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if key == nil {
		key = ByClientIP
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := limiter.Allow(r.Context(), key(r))
			if err != nil {
				log.WarnContext(r.Context(), "rate limiter unavailable, failing open", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(result.Remaining, 0)))

			if !result.Allowed() {
				w.Header().Set("Retry-After", result.ResetAt.UTC().Format(http.TimeFormat))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
