package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Dry1ceD7/AAELink-sub002/internal/hub"
	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

var (
	// ErrSlowClient is returned when a connection's outbound queue is full.
	// The broadcast engine treats it like any other dead socket.
	ErrSlowClient = errors.New("ws: send queue full")

	// ErrClosed is returned when sending to a connection already shut down.
	ErrClosed = errors.New("ws: connection closed")
)

// Client owns one websocket connection: a read pump feeding the event router
// and a write pump draining a single outbound queue, so events reach the peer
// in the order they were handed over. Client implements hub.Socket.
type Client struct {
	connID string
	userID string

	conn   *websocket.Conn
	router *hub.Router
	opts   Options
	log    zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, router *hub.Router, opts Options, log zerolog.Logger) *Client {
	return &Client{
		conn:   conn,
		router: router,
		opts:   opts,
		log:    log,
		send:   make(chan []byte, opts.SendQueueSize),
		done:   make(chan struct{}),
	}
}

// Send enqueues a payload for the write pump without blocking. A full queue
// fails the send so the engine can unregister the connection.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSlowClient
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

// readPump reads inbound frames in receipt order and dispatches them.
// Its exit, graceful or not, is the disconnect signal: teardown always runs.
func (c *Client) readPump() {
	defer func() {
		c.router.HandleDisconnect(c.connID)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn().Str("conn_id", c.connID).Err(err).Msg("websocket read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))

		env, err := models.ParseEnvelope(raw)
		if err != nil {
			// Malformed frame: error to the originator only, connection stays open.
			c.sendError("bad_envelope", "frame is not a valid envelope")
			continue
		}
		c.router.Dispatch(c.connID, env)
	}
}

// writePump is the single writer for the connection; gorilla/websocket does
// not allow concurrent writes.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) sendError(code, message string) {
	env, err := models.NewEnvelope(models.EventError, "", "", models.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	payload, err := env.Encode()
	if err != nil {
		return
	}
	_ = c.Send(payload)
}
