package hub

import (
	"github.com/rs/zerolog"

	"github.com/Dry1ceD7/AAELink-sub002/internal/metrics"
)

// Broadcaster delivers a serialized payload to a channel's member set or to a
// single user's live sockets. The event router depends only on this interface
// so a pub/sub-backed engine can replace the in-memory one.
type Broadcaster interface {
	// ToChannel delivers to every member's sockets, skipping excludeUserID
	// when non-empty.
	ToChannel(channelID string, payload []byte, excludeUserID string)
	// ToUser delivers to every live socket of one user.
	ToUser(userID string, payload []byte)
}

// Engine is the in-memory broadcast engine. It snapshots the member set from
// the index, then resolves sockets through the registry; the two locks are
// never held together.
type Engine struct {
	reg     *Registry
	idx     *Membership
	log     zerolog.Logger
	cleanup func(connID string)
}

// NewEngine creates a broadcast engine over the given registry and index.
func NewEngine(reg *Registry, idx *Membership, log zerolog.Logger) *Engine {
	return &Engine{reg: reg, idx: idx, log: log}
}

// SetCleanup installs the callback invoked (on its own goroutine) when a send
// to a socket fails, so the dead connection is torn down through the normal
// disconnect path. Set after the router exists to break the construction cycle.
func (e *Engine) SetCleanup(fn func(connID string)) {
	e.cleanup = fn
}

// ToChannel resolves members via the index and delivers to each member's live
// sockets. A failed socket never blocks delivery to the remaining recipients.
func (e *Engine) ToChannel(channelID string, payload []byte, excludeUserID string) {
	for _, userID := range e.idx.Members(channelID) {
		if excludeUserID != "" && userID == excludeUserID {
			continue
		}
		e.sendUser(userID, payload)
	}
}

// ToUser delivers directly to one user's sockets; no index lookup.
func (e *Engine) ToUser(userID string, payload []byte) {
	e.sendUser(userID, payload)
}

func (e *Engine) sendUser(userID string, payload []byte) {
	for _, ref := range e.reg.ConnsOf(userID) {
		if err := ref.Sock.Send(payload); err != nil {
			metrics.SendFailures.Inc()
			e.log.Warn().
				Str("user_id", userID).
				Str("conn_id", ref.ID).
				Err(err).
				Msg("send failed, scheduling connection cleanup")
			if e.cleanup != nil {
				go e.cleanup(ref.ID)
			}
			continue
		}
		metrics.BroadcastDeliveries.Inc()
	}
}
