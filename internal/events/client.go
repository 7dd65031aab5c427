package events

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsClient is one dashboard connection. The stream is one-way: inbound
// frames are read only to detect disconnects.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) readPump(unregister func(*wsClient), mu *sync.Mutex) {
	defer func() {
		mu.Lock()
		unregister(c)
		mu.Unlock()
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
