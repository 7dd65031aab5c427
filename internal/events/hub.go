package events

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"parity-league/models"
)

// Upgrader accepts dashboard connections from any origin; the stream only
// carries data the read-only REST mirror exposes anyway.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts bus events to websocket dashboard subscribers. Consumers
// subscribe but never mutate.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
}

// NewHub builds an empty hub and attaches it to the bus.
func NewHub(bus *Bus) *Hub {
	h := &Hub{clients: make(map[*wsClient]bool)}
	bus.Subscribe(h.Broadcast)
	return h
}

// Handler returns the gin handler for GET /ws.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := Upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[EVENTS] websocket upgrade failed: %v", err)
			return
		}

		client := &wsClient{
			conn: conn,
			send: make(chan []byte, 64),
		}

		h.mu.Lock()
		h.clients[client] = true
		count := len(h.clients)
		h.mu.Unlock()
		log.Printf("[EVENTS] dashboard subscriber connected (%d total)", count)

		go client.writePump()
		go client.readPump(h.unregister, &h.mu)
	}
}

// Broadcast delivers one event to every connected subscriber. A subscriber
// with a full send buffer is dropped.
func (h *Hub) Broadcast(event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[EVENTS] encode %s failed: %v", event.Kind, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// unregister is called with h.mu held by the client's read pump.
func (h *Hub) unregister(c *wsClient) {
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}
