package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Client represents a single WebSocket connection to the admin feed.
type Client struct {
	Wallet string
	Send   chan []byte
	hub    *Hub
	mu     sync.Mutex
	closed bool
}

// Close removes the client from the hub before closing Send, so an in-flight
// Broadcast can never write to a closed channel.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	if c.hub != nil {
		c.hub.unregister(c)
	}
	close(c.Send)
}

// Hub maintains the connected admin consoles and pushes conversion events to
// them the moment the ingestion endpoint accepts a request.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Broadcast sends a typed event to every connected console. Slow consumers
// are skipped rather than blocking ingestion.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{"type": eventType, "data": payload})
	if err != nil {
		log.Printf("[ws] marshal broadcast: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}
