package preview

import (
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// client wraps one viewer's WebSocket connection. Writes are serialised
// because broadcasts and replies come from different goroutines.
type client struct {
	conn *websocket.Conn
	ip   string
	mu   sync.Mutex
}

func newClient(conn *websocket.Conn, ip string) *client {
	return &client{conn: conn, ip: ip}
}

// readCommand blocks until the viewer sends a non-blank message and returns
// its first line, trimmed and lower-cased.
func (c *client) readCommand() (string, error) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		for _, line := range strings.Split(string(message), "\n") {
			if cmd := strings.TrimSpace(line); cmd != "" {
				return strings.ToLower(cmd), nil
			}
		}
	}
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) close() error {
	return c.conn.Close()
}
