package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
	"github.com/ternarybob/seoforge/internal/services/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const writeWait = 10 * time.Second

// WSMessage is the envelope of every message pushed to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatusUpdate is sent to a client when it connects
type StatusUpdate struct {
	ServerInstanceID   string             `json:"server_instance_id"`
	ClientID           string             `json:"client_id"`
	Progress           models.RunProgress `json:"progress"`
	Stats              models.ItemStats   `json:"stats"`
	CredentialsInvalid bool               `json:"credentials_invalid"`
}

// StatusProvider supplies the state a newly connected client starts from
type StatusProvider interface {
	Progress() models.RunProgress
	CredentialsInvalid() bool
}

// WebSocketHandler pushes batch events to connected clients
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	eventService     interfaces.EventService
	progress         *events.ProgressAggregator
	status           StatusProvider
	store            interfaces.ItemStore
	serverInstanceID string // Unique ID generated on startup - clients use to detect server restart
}

// NewWebSocketHandler creates the handler and subscribes it to batch events
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		eventService:     eventService,
		serverInstanceID: common.NewClientID(),
	}

	interval := 250 * time.Millisecond
	if config != nil && config.ProgressInterval != "" {
		if parsed, err := time.ParseDuration(config.ProgressInterval); err == nil {
			interval = parsed
		} else {
			logger.Warn().Err(err).Str("interval", config.ProgressInterval).Msg("Invalid progress interval, using default")
		}
	}
	h.progress = events.NewProgressAggregator(interval, h.broadcastProgress, logger)

	logger.Info().
		Str("server_instance_id", h.serverInstanceID).
		Dur("progress_interval", interval).
		Msg("WebSocket handler initialized")

	if eventService != nil {
		h.subscribe()
	}

	return h
}

// SetStatusSource sets where connect-time status is read from
func (h *WebSocketHandler) SetStatusSource(status StatusProvider, itemStore interfaces.ItemStore) {
	h.status = status
	h.store = itemStore
}

// StartProgressFlush delivers coalesced progress updates until ctx is done
func (h *WebSocketHandler) StartProgressFlush(ctx context.Context) {
	h.progress.StartPeriodicFlush(ctx)
}

func (h *WebSocketHandler) subscribe() {
	handlers := map[interfaces.EventType]interfaces.EventHandler{
		interfaces.EventRunStarted: func(ctx context.Context, event interfaces.Event) error {
			h.Broadcast("run_started", event.Payload)
			return nil
		},
		interfaces.EventRunProgress: func(ctx context.Context, event interfaces.Event) error {
			if progress, ok := event.Payload.(models.RunProgress); ok {
				h.progress.Record(ctx, progress)
			}
			return nil
		},
		interfaces.EventItemStarted: func(ctx context.Context, event interfaces.Event) error {
			h.Broadcast("item_started", event.Payload)
			return nil
		},
		interfaces.EventItemFinished: func(ctx context.Context, event interfaces.Event) error {
			h.Broadcast("item", event.Payload)
			return nil
		},
		interfaces.EventCredentialsInvalid: func(ctx context.Context, event interfaces.Event) error {
			h.Broadcast("credentials_invalid", event.Payload)
			return nil
		},
		interfaces.EventRunFinished: func(ctx context.Context, event interfaces.Event) error {
			h.progress.Flush(ctx)
			h.Broadcast("run_finished", event.Payload)
			return nil
		},
		interfaces.EventItemsImported: func(ctx context.Context, event interfaces.Event) error {
			h.Broadcast("items_imported", event.Payload)
			return nil
		},
		interfaces.EventItemsReset: func(ctx context.Context, event interfaces.Event) error {
			h.Broadcast("items_reset", nil)
			return nil
		},
	}

	for eventType, handler := range handlers {
		if err := h.eventService.Subscribe(eventType, handler); err != nil {
			h.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe WebSocket handler")
		}
	}
}

func (h *WebSocketHandler) broadcastProgress(ctx context.Context, progress models.RunProgress) {
	h.Broadcast("progress", progress)
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	clientID := common.NewClientID()
	mutex := &sync.Mutex{}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = mutex
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Str("client_id", clientID).Msgf("WebSocket client connected (total: %d)", clientCount)

	h.sendStatus(conn, mutex, clientID)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		clientCount := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Str("client_id", clientID).Msgf("WebSocket client disconnected (remaining: %d)", clientCount)
	}()

	// Read messages from client (keep connection alive)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

func (h *WebSocketHandler) sendStatus(conn *websocket.Conn, mutex *sync.Mutex, clientID string) {
	status := StatusUpdate{
		ServerInstanceID: h.serverInstanceID,
		ClientID:         clientID,
	}
	if h.status != nil {
		status.Progress = h.status.Progress()
		status.CredentialsInvalid = h.status.CredentialsInvalid()
	}
	if h.store != nil {
		status.Stats = h.store.Stats()
	}

	data, err := json.Marshal(WSMessage{Type: "status", Payload: status})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal status message")
		return
	}

	mutex.Lock()
	defer mutex.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send status to client")
	}
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHandler) Broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", msgType).Msg("Failed to send message to client")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *WebSocketHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for conn := range h.clients {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close %d websocket clients", len(errs))
	}
	return nil
}
