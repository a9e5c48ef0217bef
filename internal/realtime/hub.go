// Package realtime pushes inventory changes to connected websocket clients.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

const (
	KindInventoryCreated = "inventory.created"
	KindInventoryUpdated = "inventory.updated"
	KindInventoryDeleted = "inventory.deleted"
)

// Event is one message sent to every client.
type Event struct {
	Kind    string    `json:"kind"`
	ID      uint      `json:"id,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// sendBuffer is how many events may queue for one client before it is dropped.
const sendBuffer = 16

// Client is a single websocket connection. Only its writer goroutine writes to conn.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     *utils.Logger
}

func NewHub(log *utils.Logger) *Hub {
	return &Hub{clients: make(map[*Client]struct{}), log: log}
}

// Register adds conn to the broadcast set. Queued events are written by
// Serve; a client nobody serves is dropped once its queue fills up.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues e for every client without waiting on the network.
// Clients whose queue is full are dropped.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	msg, err := json.Marshal(e)
	if err != nil {
		h.log.Error("Failed to marshal realtime event", zap.String("kind", e.Kind), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("Dropping slow realtime client", zap.String("kind", e.Kind))
			h.Unregister(c)
		}
	}
}

// Serve keeps a registered connection alive until the peer goes away.
// Queued events and pings are written from a separate goroutine while
// this one blocks on reads.
func (h *Hub) Serve(conn *websocket.Conn, pingInterval time.Duration) {
	c := h.Register(conn)
	go h.writeLoop(c, pingInterval)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.Unregister(c)
			return
		}
	}
}

func (h *Hub) writeLoop(c *Client, pingInterval time.Duration) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				h.log.Warn("Dropping realtime client", zap.Error(err))
				h.Unregister(c)
				return
			}
		case <-t.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				h.Unregister(c)
				return
			}
		}
	}
}
