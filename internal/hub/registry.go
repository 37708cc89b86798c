// Package hub implements the realtime presence and message-broadcast core:
// the connection registry, channel membership index, presence tracker, event
// router, and broadcast engine. The registry and the index are the only shared
// mutable structures; each carries its own lock and the two locks are never
// held at the same time.
package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Socket is the transport handle owned exclusively by a connection entry.
// Send must preserve the order of calls for a single socket.
type Socket interface {
	Send(payload []byte) error
	Close() error
}

// Conn is one live transport session belonging to exactly one user.
type Conn struct {
	ID       string
	UserID   string
	sock     Socket
	channels map[string]struct{}
	lastSeen time.Time
}

// ConnRef pairs a connection ID with its socket for broadcast delivery.
type ConnRef struct {
	ID   string
	Sock Socket
}

// Registry maps user identities to their live connections. A user may own
// any number of concurrent connections (multi-device); reconnecting never
// evicts a prior socket.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn            // connID -> conn
	byUser map[string]map[string]*Conn // userID -> connID -> conn
	clock  func() time.Time
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		byUser: make(map[string]map[string]*Conn),
		clock:  time.Now,
	}
}

// Register creates a live entry for the user and returns its connection ID.
// It never fails.
func (r *Registry) Register(userID string, sock Socket) string {
	connID := uuid.NewString()
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Conn{
		ID:       connID,
		UserID:   userID,
		sock:     sock,
		channels: make(map[string]struct{}),
		lastSeen: now,
	}
	r.conns[connID] = c
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]*Conn)
	}
	r.byUser[userID][connID] = c
	return connID
}

// Unregister removes the entry and returns the owning user and the channels
// the connection had joined, for presence teardown. Unknown IDs are a no-op.
func (r *Registry) Unregister(connID string) (userID string, channels []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return "", nil
	}
	delete(r.conns, connID)
	if mm := r.byUser[c.UserID]; mm != nil {
		delete(mm, connID)
		if len(mm) == 0 {
			delete(r.byUser, c.UserID)
		}
	}

	channels = make([]string, 0, len(c.channels))
	for ch := range c.channels {
		channels = append(channels, ch)
	}
	return c.UserID, channels
}

// JoinedChannels returns the channels the connection is currently joined to.
func (r *Registry) JoinedChannels(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

// AddChannel records the channel in the connection's joined set. Idempotent;
// unknown connection IDs are a no-op.
func (r *Registry) AddChannel(connID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conns[connID]; ok {
		c.channels[channelID] = struct{}{}
	}
}

// RemoveChannel drops the channel from the connection's joined set. Idempotent.
func (r *Registry) RemoveChannel(connID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conns[connID]; ok {
		delete(c.channels, channelID)
	}
}

// UserHasChannel reports whether any of the user's live connections is still
// joined to the channel. Used to reconcile membership on multi-device leave.
func (r *Registry) UserHasChannel(userID, channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.byUser[userID] {
		if _, ok := c.channels[channelID]; ok {
			return true
		}
	}
	return false
}

// LiveSockets returns the user's live sockets, used for direct delivery.
func (r *Registry) LiveSockets(userID string) []Socket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mm := r.byUser[userID]
	out := make([]Socket, 0, len(mm))
	for _, c := range mm {
		out = append(out, c.sock)
	}
	return out
}

// ConnsOf returns conn refs for the user, so the broadcast engine can trigger
// cleanup of a specific connection on send failure.
func (r *Registry) ConnsOf(userID string) []ConnRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mm := r.byUser[userID]
	out := make([]ConnRef, 0, len(mm))
	for _, c := range mm {
		out = append(out, ConnRef{ID: c.ID, Sock: c.sock})
	}
	return out
}

// SocketOf returns the socket for a single connection, for replies to the
// originator only.
func (r *Registry) SocketOf(connID string) (Socket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return c.sock, true
}

// UserOf returns the identity owning a connection.
func (r *Registry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	return c.UserID, true
}

// Touch refreshes the connection's last-activity timestamp.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conns[connID]; ok {
		c.lastSeen = r.clock()
	}
}

// ConnCount returns the number of live connections.
func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// UserCount returns the number of distinct users with at least one connection.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// DeviceCount returns the number of live connections owned by the user.
func (r *Registry) DeviceCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	return r.DeviceCount(userID) > 0
}

// LastSeen returns the most recent activity across the user's connections.
func (r *Registry) LastSeen(userID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last time.Time
	mm, ok := r.byUser[userID]
	if !ok {
		return last, false
	}
	for _, c := range mm {
		if c.lastSeen.After(last) {
			last = c.lastSeen
		}
	}
	return last, true
}

// CloseAll closes every live socket. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	socks := make([]Socket, 0, len(r.conns))
	for _, c := range r.conns {
		socks = append(socks, c.sock)
	}
	r.conns = make(map[string]*Conn)
	r.byUser = make(map[string]map[string]*Conn)
	r.mu.Unlock()

	for _, s := range socks {
		_ = s.Close()
	}
}
