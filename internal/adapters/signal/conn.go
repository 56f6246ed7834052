// Package signal is the websocket transport adapter: it upgrades
// connections, decodes client requests, and drains each connection's
// outbound channel into the socket.
package signal

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gamerz-app/gamerz/internal/core"
)

// wsConn owns one websocket's send side. The broadcast engine writes
// frames through TrySend; the write pump drains them. TrySend never
// blocks: a full buffer counts as a delivery failure.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan core.Frame, 32),
	}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
