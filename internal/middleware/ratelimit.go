package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"zlibsearch/internal/api"
)

// RateLimit rejects requests beyond rps (with the given burst) with 429.
// It is a single process-wide bucket.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				api.WriteError(w, http.StatusTooManyRequests, api.CodeRateLimited, "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
