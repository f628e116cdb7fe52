package web

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/button-led/internal/logic"
	"github.com/sweeney/button-led/internal/status"
)

// clientSendBuffer is the number of messages queued per client before it is
// considered too slow and disconnected.
const clientSendBuffer = 64

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Hub fans input and controller changes out to WebSocket clients.
// OnInput and ControllerChanged run on the scheduler worker and never block:
// a client whose queue is full is dropped.
type Hub struct {
	tracker *status.Tracker
	now     func() time.Time

	mu      sync.RWMutex
	clients map[*client]bool
}

// NewHub creates a Hub that greets new clients with a tracker snapshot.
func NewHub(tracker *status.Tracker) *Hub {
	return &Hub{
		tracker: tracker,
		now:     time.Now,
		clients: make(map[*client]bool),
	}
}

// AddClient registers conn and queues the current snapshot to it.
func (h *Hub) AddClient(conn *websocket.Conn) *client {
	data, _ := json.Marshal(snapshotMessage(h.tracker.Snapshot()))
	c := newClient(conn)

	h.mu.Lock()
	h.clients[c] = true
	select {
	case c.send <- data:
	default:
	}
	h.mu.Unlock()
	return c
}

// RemoveClient unregisters c and stops its write pump.
func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// OnInput broadcasts a published input state.
func (h *Hub) OnInput(state logic.InputState) {
	h.broadcast(inputMessage(state, h.now()))
}

// ControllerChanged broadcasts an LED controller transition.
func (h *Hub) ControllerChanged(cs logic.ControllerState) {
	h.broadcast(controllerMessage(cs))
}

func (h *Hub) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("web: marshal %s: %v", msg.Type, err)
		return
	}

	// Sends happen under the read lock: send is only closed under the
	// write lock, so a client cannot be closed mid-send.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("web: ws client too slow, disconnecting")
		h.RemoveClient(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
