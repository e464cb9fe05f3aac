package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits requests per client IP within the window.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requests, window)
}

// RateLimitByToken limits requests per bearer token, falling back to
// the client IP for unauthenticated requests. This keeps one noisy
// credential from exhausting the budget of everyone behind a shared
// NAT, and vice versa.
func RateLimitByToken(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if tok := bearerToken(r); tok != "" {
				return tok, nil
			}
			return httprate.KeyByIP(r)
		}),
	)
}
