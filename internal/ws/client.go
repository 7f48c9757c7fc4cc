package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// Client pairs a websocket connection with its session context and
// serializes writes; the hub and the session goroutine both write to it.
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	mu sync.Mutex
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// Info returns the session context.
func (c *Client) Info() ConnInfo {
	return c.info
}

// Send marshals and writes one event to the connection.
func (c *Client) Send(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
