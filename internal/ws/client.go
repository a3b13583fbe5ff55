package ws

import (
	"sync"
	"time"

	"pong_server/internal/logger"
	"pong_server/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client wraps one websocket. Writes go through a buffered channel drained by
// writePump; a full buffer drops the frame instead of stalling the game loop.
type Client struct {
	conn   *websocket.Conn
	stream string
	user   string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, stream, user string) *Client {
	return &Client{
		conn:   conn,
		stream: stream,
		user:   user,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Send queues msg without blocking. It reports false when the client is
// closed or too slow to keep up.
func (c *Client) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		logger.Warn("client send buffer full, dropping frame", "stream", c.stream, "user", c.user)
		return false
	}
}

// Close asks writePump to flush and close the socket. Safe to call repeatedly.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Serve runs both pumps until the peer goes away, handing every inbound frame
// to onMessage. It returns once the read side has ended.
func (c *Client) Serve(onMessage func([]byte)) {
	metrics.Connections.WithLabelValues(c.stream).Inc()
	defer metrics.Connections.WithLabelValues(c.stream).Dec()

	go c.writePump()
	c.readPump(onMessage)
}

func (c *Client) readPump(onMessage func([]byte)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("read error", "stream", c.stream, "user", c.user, "error", err)
			}
			return
		}
		onMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if !c.write(websocket.TextMessage, msg) {
				c.Close()
				return
			}
		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				c.Close()
				return
			}
		case <-c.done:
			// flush what was queued before the close, e.g. an error notice
			for {
				select {
				case msg := <-c.send:
					if !c.write(websocket.TextMessage, msg) {
						return
					}
				default:
					c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *Client) write(kind int, msg []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(kind, msg); err != nil {
		logger.Debug("write error", "stream", c.stream, "user", c.user, "error", err)
		return false
	}
	return true
}
