package httputil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/algostatus/statuspage/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// MetricsMiddleware observes request duration by method, route pattern and status.
// It must be the outermost middleware so the timing covers the whole chain.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method,
			routeLabel(r),
			strconv.Itoa(responseStatus(ww, r)),
		).Observe(time.Since(start).Seconds())
	})
}

// routeLabel returns the matched chi pattern, keeping label cardinality bounded.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

// responseStatus reports the status the client saw. Hijacked websocket
// handshakes never pass through WriteHeader.
func responseStatus(ww middleware.WrapResponseWriter, r *http.Request) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	if websocket.IsWebSocketUpgrade(r) {
		return http.StatusSwitchingProtocols
	}
	return http.StatusOK
}
