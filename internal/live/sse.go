package live

import (
	"fmt"
	"net/http"
	"time"

	"github.com/algostatus/statuspage/internal/pkg/ctxlog"
	"github.com/algostatus/statuspage/internal/pkg/httputil"
)

// StreamHandler serves hub messages as Server-Sent Events for clients without websocket support.
type StreamHandler struct {
	hub       *Hub
	keepalive time.Duration
}

// NewStreamHandler creates an SSE transport for hub.
func NewStreamHandler(hub *Hub, keepalive time.Duration) *StreamHandler {
	if keepalive <= 0 {
		keepalive = defaultPingInterval
	}
	return &StreamHandler{hub: hub, keepalive: keepalive}
}

// ServeHTTP handles GET /api/live/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub, err := h.hub.Subscribe()
	if err != nil {
		httputil.Error(w, http.StatusServiceUnavailable, "live updates unavailable")
		return
	}
	defer h.hub.Unsubscribe(sub)

	logger := ctxlog.FromContext(r.Context()).With("subscriber_id", sub.ID())
	logger.Info("stream viewer connected")
	defer logger.Info("stream viewer disconnected")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// The stream outlives the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.Debug("stream write deadline not cleared", "error", err)
	}

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg := <-sub.Messages():
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-sub.Done():
			return
		case <-r.Context().Done():
			return
		}
	}
}
