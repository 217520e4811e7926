package websocket

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/maritimalarm/maritime-alarm/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

//nolint:gochecknoglobals // Process-wide client sequence.
var clientIDCounter atomic.Uint64

// Client is one websocket connection attached to a hub.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
}

// readPump drains inbound frames, answering pings, until the connection drops.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.ErrorKV(ctx, "Failed to set read deadline", "error", err)

		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnKV(ctx, "Unexpected websocket close", "client_id", c.id, "error", err)
			}

			return
		}

		if msg.Type != MessageTypePing {
			continue
		}

		// The hub owns send once attached; a full buffer just skips the pong.
		c.hub.mu.RLock()
		if c.hub.clients[c] {
			select {
			case c.send <- Message{Type: MessageTypePong}:
			default:
			}
		}
		c.hub.mu.RUnlock()
	}
}

// writePump writes queued messages and keepalive pings until send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logger.DebugKV(ctx, "Failed to write websocket message", "client_id", c.id, "error", err)

				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
