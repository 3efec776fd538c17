package http

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/metrics"
)

const writeWait = 10 * time.Second

// PushMessage is an unsolicited event sent to every connected renderer.
type PushMessage struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// client serializes writes to one connection; gorilla connections allow a
// single concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

func (c *client) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

// Hub tracks renderer connections and broadcasts events to them. It
// implements ipc.Emitter.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewHub returns a hub with no connected clients.
func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log.Named("hub"),
		metrics: m,
	}
}

func (h *Hub) register(conn *websocket.Conn) *client {
	c := &client{conn: conn}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.WSConnected()
	h.log.Debug("renderer connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("conns", count))
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	_ = c.conn.Close()
	h.metrics.WSDisconnected()
	h.log.Debug("renderer disconnected", zap.Int("conns", count))
}

// Count returns the number of connected renderers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit broadcasts an event. Connections that fail to receive it are dropped.
func (h *Hub) Emit(event string, payload any) {
	data, err := json.Marshal(PushMessage{Event: event, Payload: payload})
	if err != nil {
		h.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		h.log.Debug("event skipped, no renderer connected", zap.String("event", event))
		return
	}

	for _, c := range clients {
		if err := c.write(websocket.TextMessage, data); err != nil {
			h.log.Warn("event delivery failed", zap.String("event", event), zap.Error(err))
			h.unregister(c)
		}
	}
}

// Close disconnects every renderer.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		h.unregister(c)
	}
}
