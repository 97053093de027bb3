// Package live pushes conversation state to widgets over WebSocket.
package live

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/ashureev/chameleon/internal/chat"
)

const sendBuffer = 16

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks the connected widget of every conversation and fans state
// changes out to it. A second connection for the same conversation replaces
// the first.
type Hub struct {
	mu     sync.RWMutex
	active map[string]*client
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		active: make(map[string]*client),
		logger: logger,
	}
}

func (h *Hub) register(key string, c *client) {
	h.mu.Lock()
	existing, replaced := h.active[key]
	h.active[key] = c
	h.mu.Unlock()

	// The close handshake waits on the peer, so it runs outside the lock.
	if replaced && existing != c {
		go func() {
			_ = existing.conn.Close(websocket.StatusNormalClosure, "session replaced")
		}()
	}
	h.logger.Info("Live session registered", "session", key)
}

func (h *Hub) unregister(key string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.active[key]; ok && current == c {
		delete(h.active, key)
		h.logger.Info("Live session unregistered", "session", key)
	}
}

// Len returns the number of connected widgets.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active)
}

// Publish sends st to the widget connected for key, if any. It never blocks:
// a widget that falls behind loses the update and catches up on the next one.
func (h *Hub) Publish(key string, st chat.State) {
	h.mu.RLock()
	c, ok := h.active[key]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(stateMessage{Type: typeState, State: st})
	if err != nil {
		h.logger.Error("Failed to encode state", "session", key, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("Live session send buffer full, dropping update", "session", key, "revision", st.Revision)
	}
}

// CloseAll disconnects every widget.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.active))
	for key, c := range h.active {
		clients = append(clients, c)
		delete(h.active, key)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}(c)
	}
	wg.Wait()
}
