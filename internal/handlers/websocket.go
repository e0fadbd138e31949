package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocketHandler broadcasts status-transition events to connected
// dashboard clients. The stored record remains authoritative; the stream
// only saves the dashboard from tight polling.
type WebSocketHandler struct {
	logger  arbor.ILogger
	clients map[*websocket.Conn]*sync.Mutex
	mu      sync.RWMutex
}

// NewWebSocketHandler creates the event stream handler
func NewWebSocketHandler(logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		logger:  logger,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Compile-time assertion
var _ interfaces.EventPublisher = (*WebSocketHandler)(nil)

// HandleWebSocket upgrades the connection and registers the client
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	// Read loop exists only to detect disconnect
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish sends an event to all connected clients. Never blocks the
// pipeline: send failures just drop the client.
func (h *WebSocketHandler) Publish(event models.Event) {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range conns {
		go func(conn *websocket.Conn, mu *sync.Mutex) {
			mu.Lock()
			err := conn.WriteJSON(event)
			mu.Unlock()
			if err != nil {
				h.removeClient(conn)
			}
		}(conn, mu)
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}
