package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"fotnik/internal/domain"
)

var errConnClosed = errors.New("ws: connection closed")

// Conn wraps a websocket connection with a write lock and a closed flag.
// gorilla/websocket allows at most one concurrent writer, and the pipeline
// publishes progress from its own goroutine while the read loop may echo
// messages, so every write goes through Send.
type Conn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// NewConn wraps an upgraded websocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes the event as a JSON message. A write failure marks the
// connection closed: the peer state may change between the liveness check and
// the write, and a failed send is treated the same as a closed handle.
func (c *Conn) Send(event domain.ProgressEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	if err := c.ws.WriteJSON(event); err != nil {
		c.closed = true
		return err
	}
	return nil
}

// SendRaw writes an already-encoded message unchanged. Used for echoes,
// where re-encoding through the event shape would drop unknown fields.
func (c *Conn) SendRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.closed = true
		return err
	}
	return nil
}

// Read blocks for the next text message from the peer.
func (c *Conn) Read() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		return nil, err
	}
	return data, nil
}

// Closed reports whether the connection is known to be closed.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close marks the connection closed and closes the underlying socket.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	_ = c.ws.Close()
}

var _ Handle = (*Conn)(nil)
