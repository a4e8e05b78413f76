// Package live fans out change events to connected status page viewers.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/pkg/ctxlog"
	"github.com/algostatus/statuspage/internal/pkg/metrics"
	"github.com/google/uuid"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("live hub is closed")

// DefaultBufferSize is the per-subscriber queue length used when Config.BufferSize is not set.
const DefaultBufferSize = 64

// Config holds hub settings.
type Config struct {
	// BufferSize is how many undelivered messages a subscriber may hold
	// before it is evicted.
	BufferSize int
}

// Message is a named event with its JSON-encoded payload.
type Message struct {
	Event domain.LiveEvent `json:"event"`
	Data  json.RawMessage  `json:"data"`
}

// Subscriber receives messages in publish order until it is removed.
type Subscriber struct {
	id        string
	messages  chan Message
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string {
	return s.id
}

// Messages returns the delivery channel. It is never closed; watch Done.
func (s *Subscriber) Messages() <-chan Message {
	return s.messages
}

// Done is closed when the hub drops the subscriber (eviction or hub shutdown).
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Hub is a publish hub shared by the domain services and the connection handlers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber
	bufferSize  int
	closed      bool
	logger      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		bufferSize:  cfg.BufferSize,
		logger:      logger,
	}
}

// Subscribe registers a new subscriber. Messages published before this call are not replayed.
func (h *Hub) Subscribe() (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &Subscriber{
		id:       uuid.NewString(),
		messages: make(chan Message, h.bufferSize),
		done:     make(chan struct{}),
	}
	h.subscribers[sub.id] = sub
	metrics.LiveSubscribers.Set(float64(len(h.subscribers)))

	h.logger.Debug("live subscriber connected", "subscriber_id", sub.id, "total", len(h.subscribers))
	return sub, nil
}

// Unsubscribe removes a subscriber. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.id]; !ok {
		return
	}
	delete(h.subscribers, sub.id)
	sub.close()
	metrics.LiveSubscribers.Set(float64(len(h.subscribers)))

	h.logger.Debug("live subscriber disconnected", "subscriber_id", sub.id, "total", len(h.subscribers))
}

// Publish delivers payload to every current subscriber.
//
// Publishes are serialized, so all subscribers observe the same order.
// A subscriber whose buffer is full is evicted instead of losing a message;
// the publisher never blocks and never sees an error.
func (h *Hub) Publish(ctx context.Context, event domain.LiveEvent, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		ctxlog.FromContext(ctx).Error("failed to encode live event", "event", event, "error", err)
		return
	}
	msg := Message{Event: event, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	metrics.LiveEventsPublished.WithLabelValues(string(event)).Inc()

	for id, sub := range h.subscribers {
		select {
		case sub.messages <- msg:
		default:
			delete(h.subscribers, id)
			sub.close()
			metrics.LiveSubscribersEvicted.Inc()
			h.logger.Warn("live subscriber evicted: buffer full", "subscriber_id", id, "event", event)
		}
	}
	metrics.LiveSubscribers.Set(float64(len(h.subscribers)))
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close releases all subscribers and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, sub := range h.subscribers {
		delete(h.subscribers, id)
		sub.close()
	}
	metrics.LiveSubscribers.Set(0)
	h.logger.Info("live hub closed")
}
