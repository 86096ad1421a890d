package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans lifecycle events out to connected notification subscribers.
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	logger    *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// AddClient registers a subscriber connection and reaps it on disconnect.
func (h *Hub) AddClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Sugar().Infow("notification subscriber connected", "clients", count)

	go func() {
		defer func() {
			h.clientsMu.Lock()
			delete(h.clients, conn)
			remaining := len(h.clients)
			h.clientsMu.Unlock()
			_ = conn.Close()
			h.logger.Sugar().Infow("notification subscriber disconnected", "clients", remaining)
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast writes the payload to every connected subscriber. Slow or dead
// connections are dropped rather than blocking the event path.
func (h *Hub) Broadcast(payload interface{}) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(payload); err != nil {
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}
