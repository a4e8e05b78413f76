package live

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/pkg/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\n")
}

func TestStreamHandler_WritesEvents(t *testing.T) {
	// Arrange
	hub := NewHub(Config{}, nil)
	server := httptest.NewServer(NewStreamHandler(hub, time.Minute))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, reader))
	assert.Equal(t, "", readLine(t, reader))
	waitForSubscribers(t, hub, 1)

	// Act
	hub.Publish(context.Background(), domain.LiveServiceDeleted, map[string]string{"_id": "svc-1"})

	// Assert
	assert.Equal(t, "event: serviceDeleted", readLine(t, reader))
	assert.JSONEq(t, `{"_id":"svc-1"}`, strings.TrimPrefix(readLine(t, reader), "data: "))
}

func TestStreamHandler_EndsWhenHubCloses(t *testing.T) {
	hub := NewHub(Config{}, nil)
	server := httptest.NewServer(NewStreamHandler(hub, time.Minute))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	waitForSubscribers(t, hub, 1)

	hub.Close()

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(resp.Body)
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after hub close")
	}
}

func TestStreamHandler_ClosedHub(t *testing.T) {
	hub := NewHub(Config{}, nil)
	hub.Close()

	rec := httptest.NewRecorder()
	NewStreamHandler(hub, time.Minute).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/live/stream", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStreamHandler_LogsUnclearedWriteDeadline(t *testing.T) {
	// Arrange
	hub := NewHub(Config{}, nil)
	defer hub.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))
	req := httptest.NewRequest(http.MethodGet, "/api/live/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		NewStreamHandler(hub, time.Minute).ServeHTTP(rec, req)
		close(done)
	}()
	waitForSubscribers(t, hub, 1)

	// Act
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after request cancel")
	}

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "stream write deadline not cleared")
}
