package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
	"github.com/ternarybob/seoforge/internal/services/events"
)

type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wsEnvelope
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips messages until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) wsEnvelope {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg
		}
	}
}

func waitForClients(t *testing.T, h *WebSocketHandler, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketSendsStatusOnConnect(t *testing.T) {
	logger := arbor.NewLogger()
	h := NewWebSocketHandler(nil, logger, &common.WebSocketConfig{})
	runner := &mockRunner{invalid: true, progress: models.RunProgress{RunID: "run_1", Completed: 2, Total: 4}}
	h.SetStatusSource(runner, newItemStore(t, "a", "b"))

	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	conn := dialWebSocket(t, server)
	msg := readMessage(t, conn)
	require.Equal(t, "status", msg.Type)

	var status StatusUpdate
	require.NoError(t, json.Unmarshal(msg.Payload, &status))
	assert.NotEmpty(t, status.ServerInstanceID)
	assert.NotEmpty(t, status.ClientID)
	assert.Equal(t, "run_1", status.Progress.RunID)
	assert.Equal(t, 2, status.Stats.Total)
	assert.True(t, status.CredentialsInvalid)
}

func TestWebSocketRelaysBatchEvents(t *testing.T) {
	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	defer eventService.Close()

	h := NewWebSocketHandler(eventService, logger, &common.WebSocketConfig{ProgressInterval: "20ms"})
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	conn := dialWebSocket(t, server)
	require.Equal(t, "status", readMessage(t, conn).Type)
	waitForClients(t, h, 1)

	ctx := context.Background()
	item := models.WorkItem{Index: 3, Keyword: "sea freight", Status: models.ItemStatusCompleted}
	require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{Type: interfaces.EventItemFinished, Payload: item}))

	msg := readUntil(t, conn, "item")
	var got models.WorkItem
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, 3, got.Index)
	assert.Equal(t, models.ItemStatusCompleted, got.Status)

	progress := models.RunProgress{RunID: "run_1", Completed: 1, Total: 1}
	require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{Type: interfaces.EventRunProgress, Payload: progress}))
	require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{Type: interfaces.EventRunFinished, Payload: models.RunRecord{ID: "run_1", Selected: 1, Succeeded: 1}}))

	// The pending progress is flushed before the finish message
	msg = readUntil(t, conn, "progress")
	var gotProgress models.RunProgress
	require.NoError(t, json.Unmarshal(msg.Payload, &gotProgress))
	assert.Equal(t, 1, gotProgress.Completed)

	msg = readUntil(t, conn, "run_finished")
	var record models.RunRecord
	require.NoError(t, json.Unmarshal(msg.Payload, &record))
	assert.Equal(t, "run_1", record.ID)
}

// TestBroadcastFanOut verifies that every connected client receives each broadcast in order
func TestBroadcastFanOut(t *testing.T) {
	logger := arbor.NewLogger()
	h := NewWebSocketHandler(nil, logger, &common.WebSocketConfig{})
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	const numClients = 5
	const numMessages = 20

	conns := make([]*websocket.Conn, numClients)
	for i := range conns {
		conns[i] = dialWebSocket(t, server)
		require.Equal(t, "status", readMessage(t, conns[i]).Type)
	}
	waitForClients(t, h, numClients)

	var wg sync.WaitGroup
	received := make([][]int, numClients)
	for i, conn := range conns {
		wg.Add(1)
		go func(i int, conn *websocket.Conn) {
			defer wg.Done()
			for len(received[i]) < numMessages {
				_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
				var msg wsEnvelope
				if err := conn.ReadJSON(&msg); err != nil {
					return
				}
				var n int
				if err := json.Unmarshal(msg.Payload, &n); err == nil {
					received[i] = append(received[i], n)
				}
			}
		}(i, conn)
	}

	for n := 0; n < numMessages; n++ {
		h.Broadcast("tick", n)
	}
	wg.Wait()

	for i := range received {
		require.Len(t, received[i], numMessages, "client %d", i)
		for n, v := range received[i] {
			assert.Equal(t, n, v)
		}
	}

	require.NoError(t, h.Close())
}
