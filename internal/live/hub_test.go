package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	N int `json:"n"`
}

func receive(t *testing.T, sub *Subscriber) Message {
	t.Helper()
	select {
	case msg := <-sub.Messages():
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	// Arrange
	hub := NewHub(Config{}, nil)
	a, err := hub.Subscribe()
	require.NoError(t, err)
	b, err := hub.Subscribe()
	require.NoError(t, err)

	// Act
	hub.Publish(context.Background(), domain.LiveServiceCreated, payload{N: 1})

	// Assert
	for _, sub := range []*Subscriber{a, b} {
		msg := receive(t, sub)
		assert.Equal(t, domain.LiveServiceCreated, msg.Event)
		assert.JSONEq(t, `{"n":1}`, string(msg.Data))
	}
}

func TestHub_PreservesPublishOrder(t *testing.T) {
	hub := NewHub(Config{BufferSize: 16}, nil)
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	events := []domain.LiveEvent{
		domain.LiveIncidentCreated,
		domain.LiveServiceUpdated,
		domain.LiveIncidentUpdated,
		domain.LiveServiceUpdated,
	}
	for i, e := range events {
		hub.Publish(context.Background(), e, payload{N: i})
	}

	for i, e := range events {
		msg := receive(t, sub)
		assert.Equal(t, e, msg.Event)

		var p payload
		require.NoError(t, json.Unmarshal(msg.Data, &p))
		assert.Equal(t, i, p.N)
	}
}

func TestHub_NoReplayForLateSubscriber(t *testing.T) {
	hub := NewHub(Config{}, nil)
	hub.Publish(context.Background(), domain.LiveServiceCreated, payload{N: 1})

	sub, err := hub.Subscribe()
	require.NoError(t, err)

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected message %v", msg)
	default:
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(Config{}, nil)

	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), domain.LiveIncidentDeleted, payload{N: 1})
	})
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestHub_EvictsSlowSubscriber(t *testing.T) {
	// Arrange
	hub := NewHub(Config{BufferSize: 2}, nil)
	slow, err := hub.Subscribe()
	require.NoError(t, err)
	fast, err := hub.Subscribe()
	require.NoError(t, err)

	// Act
	for i := 0; i < 3; i++ {
		hub.Publish(context.Background(), domain.LiveServiceUpdated, payload{N: i})
		receive(t, fast)
	}

	// Assert
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow subscriber should be evicted")
	}
	select {
	case <-fast.Done():
		t.Fatal("fast subscriber should stay connected")
	default:
	}
	assert.Equal(t, 1, hub.SubscriberCount())
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(Config{}, nil)
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	assert.Equal(t, 0, hub.SubscriberCount())
	<-sub.Done()

	hub.Publish(context.Background(), domain.LiveServiceDeleted, payload{N: 1})
	select {
	case msg := <-sub.Messages():
		t.Fatalf("unsubscribed subscriber received %v", msg)
	default:
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(Config{}, nil)
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Close()
	hub.Close()

	<-sub.Done()
	assert.Equal(t, 0, hub.SubscriberCount())

	_, err = hub.Subscribe()
	assert.ErrorIs(t, err, ErrHubClosed)

	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), domain.LiveServiceCreated, payload{N: 1})
	})
}

func TestHub_UnencodablePayloadIsDropped(t *testing.T) {
	hub := NewHub(Config{}, nil)
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Publish(context.Background(), domain.LiveServiceCreated, make(chan int))

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected message %v", msg)
	default:
	}
}

func TestHub_ConcurrentPublishersShareOneOrder(t *testing.T) {
	const publishers, perPublisher = 4, 25

	hub := NewHub(Config{BufferSize: publishers * perPublisher}, nil)
	a, err := hub.Subscribe()
	require.NoError(t, err)
	b, err := hub.Subscribe()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				hub.Publish(context.Background(), domain.LiveIncidentUpdated, payload{N: p*1000 + i})
			}
		}(p)
	}
	wg.Wait()

	total := publishers * perPublisher
	for i := 0; i < total; i++ {
		ma := receive(t, a)
		mb := receive(t, b)
		require.Equal(t, string(ma.Data), string(mb.Data), fmt.Sprintf("message %d differs", i))
	}
}
