package server

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// insertEvent is the payload-free invalidation pushed to every subscriber.
// Clients treat it purely as a signal to refetch.
var insertEvent = []byte(`{"type":"insert"}`)

// client wraps a websocket connection with a write lock. Broadcasts and
// pings come from different goroutines, and the connection allows only one
// concurrent writer.
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

// Hub tracks connected websocket subscribers and fans the store's insert
// notifications out to them. A client that cannot keep up is evicted.
type Hub struct {
	metrics *Metrics

	mu      sync.Mutex
	clients map[string]*client
}

func NewHub(metrics *Metrics) *Hub {
	return &Hub{metrics: metrics, clients: make(map[string]*client)}
}

// Register adds a connection and returns its id.
func (h *Hub) Register(conn *websocket.Conn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = &client{conn: conn}
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.Subscribers.Set(float64(count))
	log.Printf("ws subscriber %s connected (%d active)", id, count)
	return id
}

// Unregister drops a connection; safe to call twice.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	cl, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	_ = cl.conn.Close()
	h.metrics.Subscribers.Set(float64(count))
	log.Printf("ws subscriber %s disconnected (%d active)", id, count)
}

// BroadcastInsert pushes the invalidation event to every subscriber.
func (h *Hub) BroadcastInsert() {
	for id, cl := range h.snapshot() {
		if err := cl.write(websocket.TextMessage, insertEvent); err != nil {
			log.Printf("ws subscriber %s write failed, evicting: %v", id, err)
			h.Unregister(id)
		}
	}
}

// Ping keeps connections alive and evicts dead ones.
func (h *Hub) Ping() {
	for id, cl := range h.snapshot() {
		if err := cl.write(websocket.PingMessage, nil); err != nil {
			h.Unregister(id)
		}
	}
}

func (h *Hub) snapshot() map[string]*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]*client, len(h.clients))
	for id, cl := range h.clients {
		out[id] = cl
	}
	return out
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()
	for _, cl := range clients {
		_ = cl.conn.Close()
	}
	h.metrics.Subscribers.Set(0)
}
