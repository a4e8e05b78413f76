package httputil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitByIP limits requests per client IP within a sliding window.
// Client IP comes from chi's RealIP middleware when it runs earlier in the chain.
func RateLimitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			Error(w, http.StatusTooManyRequests, "too many requests, please try again later")
		}),
	)
}
