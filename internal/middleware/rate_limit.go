package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds edge rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultAuthRateLimit limits unauthenticated auth endpoints to 10 requests
// per minute per IP. The per-identity limiter inside the guard is stricter;
// this edge limit only blunts raw request floods.
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests: 10,
		Window:   1 * time.Minute,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Rate limit exceeded"}`))
		}),
	)
}
