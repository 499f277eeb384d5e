// Package realtime pushes per-user events to connected websocket clients.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	EventReading      = "reading"
	EventAlert        = "alert"
	EventNotification = "notification"
	EventDeviceStatus = "device_status"
	EventIrrigation   = "irrigation"
)

// Event is the envelope written to clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second
	// sendBuffer is how many events may queue for one connection before it
	// is treated as stalled and dropped.
	sendBuffer = 64
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one registered connection. Its writer goroutine is the only
// code that writes to conn.
type Client struct {
	UserID uuid.UUID
	conn   Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// enqueue never blocks; false means the send buffer is full.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*Client]struct{})}
}

// Default is the process-wide hub used by handlers and background workers.
var Default = NewHub()

// Register adds the connection and starts its writer.
func (h *Hub) Register(userID uuid.UUID, conn Conn) *Client {
	c := &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	return c
}

func (h *Hub) writePump(c *Client) {
	for {
		select {
		case msg := <-c.send:
			err := c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err == nil {
				err = c.conn.WriteMessage(websocket.TextMessage, msg)
			}
			if err != nil {
				slog.Debug("drop websocket client", "user_id", c.UserID, "err", err)
				h.Unregister(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.UserID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// ConnectionCount returns the number of open connections for a user.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) snapshot(userID uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		out = append(out, c)
	}
	return out
}

// SendToUser queues the event on every connection of the user without
// blocking. Connections whose queue is full are dropped.
func (h *Hub) SendToUser(userID uuid.UUID, eventType string, data interface{}) {
	clients := h.snapshot(userID)
	if len(clients) == 0 {
		return
	}
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		slog.Error("marshal realtime event", "type", eventType, "err", err)
		return
	}
	for _, c := range clients {
		if !c.enqueue(msg) {
			slog.Warn("drop stalled websocket client", "user_id", userID)
			h.Unregister(c)
		}
	}
}

// SendToUsers fans the same event out to several users.
func (h *Hub) SendToUsers(userIDs []uuid.UUID, eventType string, data interface{}) {
	for _, id := range userIDs {
		h.SendToUser(id, eventType, data)
	}
}
