package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client streams frames from a channel to a single WebSocket connection.
type Client struct {
	conn *ws.Conn
	send <-chan []byte
}

// NewClient creates a Client that writes every frame received on send.
func NewClient(conn *ws.Conn, send <-chan []byte) *Client {
	return &Client{
		conn: conn,
		send: send,
	}
}

// Run starts the read pump and runs the write pump. It blocks until the
// connection drops or send is closed, then closes the connection.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		c.readPump(ctx)
		cancel()
	}()

	if c.writePump(ctx) {
		c.conn.Close(ws.StatusNormalClosure, "")
		return
	}
	c.conn.CloseNow()
}

// readPump reads and discards all incoming messages. It returns on error
// (connection close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections. It reports
// whether the stream ended cleanly because send was closed.
func (c *Client) writePump(ctx context.Context) bool {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return true
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return false
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return false
			}
		case <-ctx.Done():
			return false
		}
	}
}
