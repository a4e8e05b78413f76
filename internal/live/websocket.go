package live

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/algostatus/statuspage/internal/pkg/ctxlog"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	maxInboundMessageSize = 512
	defaultPingInterval   = 30 * time.Second
	defaultWriteTimeout   = 10 * time.Second
)

// WebSocketConfig holds settings for the websocket transport.
type WebSocketConfig struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	// InboundRate and InboundBurst bound how fast a viewer may send frames.
	// Viewers only need to answer pings; anything above the limit closes the connection.
	InboundRate  float64
	InboundBurst int
}

// WebSocketHandler upgrades viewer connections and streams hub messages as JSON frames.
type WebSocketHandler struct {
	hub      *Hub
	config   WebSocketConfig
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a websocket transport for hub.
func NewWebSocketHandler(hub *Hub, cfg WebSocketConfig) *WebSocketHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.InboundRate <= 0 {
		cfg.InboundRate = 5
	}
	if cfg.InboundBurst <= 0 {
		cfg.InboundBurst = 10
	}

	return &WebSocketHandler{
		hub:    hub,
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// ServeHTTP handles GET /api/live.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub, err := h.hub.Subscribe()
	if err != nil {
		h.writeClose(conn, websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.hub.Unsubscribe(sub)

	logger = logger.With("subscriber_id", sub.ID())
	logger.Info("websocket viewer connected")

	readDone := make(chan struct{})
	go h.readLoop(conn, logger, readDone)

	h.writeLoop(conn, sub, logger, readDone)
	logger.Info("websocket viewer disconnected")
}

// readLoop drains viewer frames so control messages are processed.
// It closes readDone when the connection fails or the viewer exceeds the inbound limit.
func (h *WebSocketHandler) readLoop(conn *websocket.Conn, logger *slog.Logger, readDone chan<- struct{}) {
	defer close(readDone)

	limiter := rate.NewLimiter(rate.Limit(h.config.InboundRate), h.config.InboundBurst)
	deadline := 2 * h.config.PingInterval

	conn.SetReadLimit(maxInboundMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		if !limiter.Allow() {
			logger.Warn("websocket viewer exceeded inbound rate limit")
			h.writeClose(conn, websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}
	}
}

func (h *WebSocketHandler) writeLoop(conn *websocket.Conn, sub *Subscriber, logger *slog.Logger, readDone <-chan struct{}) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-sub.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.config.WriteTimeout)); err != nil {
				return
			}
		case <-sub.Done():
			h.writeClose(conn, websocket.CloseTryAgainLater, "subscription ended, reconnect and refetch")
			return
		case <-readDone:
			return
		}
	}
}

func (h *WebSocketHandler) writeClose(conn *websocket.Conn, code int, text string) {
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(h.config.WriteTimeout))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		slog.Debug("websocket close failed", "error", err)
	}
}

// originChecker allows any origin when the list contains "*", and otherwise
// only listed origins. Requests without an Origin header are not browsers and are allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		return set[origin]
	}
}
