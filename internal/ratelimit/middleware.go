package ratelimit

import (
	"net/http"
	"strconv"
)

// DefaultRetryAfterSeconds is the value of the Retry-After header when a
// rate limit is exceeded.
const DefaultRetryAfterSeconds = 1

// Middleware enforces per-subject rate limits. getSubject extracts the
// caller's identity from the request; requests without a subject pass
// through, since the authorization gate already rejected anonymous callers
// on protected routes.
//
// Rejected requests get 429 with a Retry-After header; allowed requests
// carry X-RateLimit-Remaining with the approximate tokens left.
func Middleware(limiter *RateLimiter, getSubject func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := getSubject(r)
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			bucket := limiter.GetLimiter(subject)
			if !bucket.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte("Too Many Requests"))
				return
			}

			remaining := int(bucket.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}
