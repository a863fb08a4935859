package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// client is one connected canvas.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	pongs  chan []byte
	remote string
}

// readPump consumes inbound frames until the peer goes away. Only ping
// messages are answered; everything else is ignored.
func (c *client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "remote", c.remote, "err", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Debug("ignoring malformed frame", "remote", c.remote, "err", err)
			continue
		}
		if msg.Type != "ping" {
			continue
		}
		pong, err := json.Marshal(Message{Type: TypePong, Data: map[string]string{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}})
		if err != nil {
			continue
		}
		c.reply(pong)
	}
}

// reply queues a direct answer without blocking the read loop.
func (c *client) reply(frame []byte) {
	select {
	case c.pongs <- frame:
	default:
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case frame := <-c.pongs:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
