// Package realtime provides a websocket client for the AAELink realtime
// gateway. It speaks the gateway's JSON envelope protocol and delivers
// incoming events through per-type callbacks.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types carried in the envelope "type" field.
const (
	EventJoin     = "join"
	EventLeave    = "leave"
	EventMessage  = "message"
	EventTyping   = "typing"
	EventPresence = "presence"
	EventReaction = "reaction"
	EventRead     = "read"
	EventAck      = "ack"
	EventError    = "error"
)

// Envelope is the wire frame exchanged with the gateway.
type Envelope struct {
	Type      string          `json:"type"`
	ChannelID string          `json:"channelId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// MessageData is the payload of a "message" event.
type MessageData struct {
	ID       string `json:"id,omitempty"`
	Body     string `json:"body"`
	ParentID string `json:"pid,omitempty"`
}

// TypingData is the payload of a "typing" event.
type TypingData struct {
	Active bool `json:"active"`
}

// PresenceData is the payload of a server-sent "presence" event.
type PresenceData struct {
	Action    string `json:"action"`
	UserID    string `json:"userId"`
	ChannelID string `json:"channelId"`
	Timestamp string `json:"timestamp"`
}

// ReactionData is the payload of a "reaction" event.
type ReactionData struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	To        string `json:"to,omitempty"`
}

// ReadData is the payload of a "read" event.
type ReadData struct {
	MessageID string `json:"messageId"`
	To        string `json:"to,omitempty"`
}

// MembersData is the payload of a members snapshot reply.
type MembersData struct {
	ChannelID string   `json:"channelId"`
	Members   []string `json:"members"`
}

// ErrorData is the payload of an "error" event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handlers holds the optional per-event callbacks. Callbacks run on the
// client's read goroutine; do not block in them.
type Handlers struct {
	OnMessage  func(Envelope, MessageData)
	OnTyping   func(Envelope, TypingData)
	OnPresence func(Envelope, PresenceData)
	OnReaction func(Envelope, ReactionData)
	OnRead     func(Envelope, ReadData)
	OnMembers  func(Envelope, MembersData)
	OnError    func(Envelope, ErrorData)

	// OnClose fires once when the connection ends. err is nil on a
	// client-initiated Close.
	OnClose func(err error)
}

// ErrClosed is returned by send methods after the connection has ended.
var ErrClosed = errors.New("realtime: connection closed")

// Client is a single websocket connection to the gateway.
type Client struct {
	conn     *websocket.Conn
	handlers Handlers

	mu     sync.Mutex // guards writes to conn
	closed bool

	done chan struct{}
	once sync.Once
}

// DialOptions configures Dial.
type DialOptions struct {
	// HandshakeTimeout bounds the websocket handshake. Default 10s.
	HandshakeTimeout time.Duration
	// Header is merged into the handshake request. The user identity
	// header is set from userID regardless.
	Header http.Header
}

// Dial connects to the gateway at baseURL (http:// or ws:// scheme) as
// userID and starts the receive loop.
func Dial(baseURL, userID string, handlers Handlers, opts *DialOptions) (*Client, error) {
	if userID == "" {
		return nil, errors.New("realtime: userID is required")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("realtime: bad url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("realtime: unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"

	var header http.Header
	timeout := 10 * time.Second
	if opts != nil {
		if opts.Header != nil {
			header = opts.Header.Clone()
		}
		if opts.HandshakeTimeout > 0 {
			timeout = opts.HandshakeTimeout
		}
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-User-ID", userID)

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, resp, err := dialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime: dial failed: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("realtime: dial failed: %w", err)
	}

	c := &Client{
		conn:     conn,
		handlers: handlers,
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close terminates the connection. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.mu.Unlock()

		err = c.conn.Close()
		<-c.done
	})
	return err
}

// Join subscribes this user to a channel.
func (c *Client) Join(channelID string) error {
	return c.send(Envelope{Type: EventJoin, ChannelID: channelID})
}

// Leave unsubscribes this user from a channel.
func (c *Client) Leave(channelID string) error {
	return c.send(Envelope{Type: EventLeave, ChannelID: channelID})
}

// SendMessage posts a message to a channel. The gateway echoes it back,
// so the caller sees its own message via OnMessage like everyone else.
func (c *Client) SendMessage(channelID, body, parentID string) error {
	return c.sendData(EventMessage, channelID, MessageData{Body: body, ParentID: parentID})
}

// Typing signals a typing-state change in a channel.
func (c *Client) Typing(channelID string, active bool) error {
	return c.sendData(EventTyping, channelID, TypingData{Active: active})
}

// React sends a reaction to a message in a channel.
func (c *Client) React(channelID, messageID, emoji string) error {
	return c.sendData(EventReaction, channelID, ReactionData{MessageID: messageID, Emoji: emoji})
}

// ReactDirect sends a reaction on a direct message to its counterpart.
func (c *Client) ReactDirect(to, messageID, emoji string) error {
	return c.sendData(EventReaction, "", ReactionData{MessageID: messageID, Emoji: emoji, To: to})
}

// MarkRead advances this user's read marker in a channel.
func (c *Client) MarkRead(channelID, messageID string) error {
	return c.sendData(EventRead, channelID, ReadData{MessageID: messageID})
}

// MarkReadDirect advances the read marker of a direct conversation.
func (c *Client) MarkReadDirect(to, messageID string) error {
	return c.sendData(EventRead, "", ReadData{MessageID: messageID, To: to})
}

// RequestMembers asks for the current member list of a channel. The
// reply arrives via OnMembers.
func (c *Client) RequestMembers(channelID string) error {
	return c.send(Envelope{Type: EventPresence, ChannelID: channelID})
}

func (c *Client) sendData(eventType, channelID string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.send(Envelope{Type: eventType, ChannelID: channelID, Data: raw})
}

func (c *Client) send(env Envelope) error {
	env.Timestamp = time.Now().UTC().Format(time.RFC3339)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.conn.WriteJSON(env)
}

func (c *Client) readLoop() {
	defer close(c.done)

	var closeErr error
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.closed = true
			c.mu.Unlock()
			if !wasClosed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				closeErr = err
			}
			break
		}
		c.dispatch(env)
	}

	if c.handlers.OnClose != nil {
		c.handlers.OnClose(closeErr)
	}
}

func (c *Client) dispatch(env Envelope) {
	switch env.Type {
	case EventMessage:
		if c.handlers.OnMessage != nil {
			var d MessageData
			if json.Unmarshal(env.Data, &d) == nil {
				c.handlers.OnMessage(env, d)
			}
		}
	case EventTyping:
		if c.handlers.OnTyping != nil {
			var d TypingData
			if json.Unmarshal(env.Data, &d) == nil {
				c.handlers.OnTyping(env, d)
			}
		}
	case EventPresence:
		// Presence frames carry either a broadcast action or a
		// members snapshot reply; tell them apart by payload shape.
		var pd PresenceData
		if json.Unmarshal(env.Data, &pd) == nil && pd.Action != "" {
			if c.handlers.OnPresence != nil {
				c.handlers.OnPresence(env, pd)
			}
			return
		}
		if c.handlers.OnMembers != nil {
			var md MembersData
			if json.Unmarshal(env.Data, &md) == nil {
				c.handlers.OnMembers(env, md)
			}
		}
	case EventReaction:
		if c.handlers.OnReaction != nil {
			var d ReactionData
			if json.Unmarshal(env.Data, &d) == nil {
				c.handlers.OnReaction(env, d)
			}
		}
	case EventRead:
		if c.handlers.OnRead != nil {
			var d ReadData
			if json.Unmarshal(env.Data, &d) == nil {
				c.handlers.OnRead(env, d)
			}
		}
	case EventError:
		if c.handlers.OnError != nil {
			var d ErrorData
			if json.Unmarshal(env.Data, &d) == nil {
				c.handlers.OnError(env, d)
			}
		}
	case EventAck:
		// Acks carry no information the callbacks need.
	}
}
