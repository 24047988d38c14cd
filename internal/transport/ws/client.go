package ws

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

var errSlowClient = errors.New("client send buffer full")

// Client adapts one websocket connection to the engine's Conn
// interface. Send enqueues onto a buffered channel drained by the
// write pump, so the engine never blocks on a slow client; a full
// buffer is reported as a send failure, which the engine treats as a
// disconnect.
type Client struct {
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newClient(ws *websocket.Conn) *Client {
	return &Client{
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// Send queues a message for delivery. It never blocks.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSlowClient
	}
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.once.Do(func() {
		close(c.closed)
	})
}

// writePump drains the send queue onto the websocket and keeps the
// connection alive with pings. It owns all writes to the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
