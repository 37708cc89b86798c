package hub

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dry1ceD7/AAELink-sub002/internal/metrics"
	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

// Sink is the persistence collaborator for message and read-receipt events.
// The router fires and forgets; delivery never waits on the sink.
type Sink interface {
	PersistMessage(ctx context.Context, env *models.Envelope) error
	PersistRead(ctx context.Context, env *models.Envelope) error
}

const sinkTimeout = 2 * time.Second

// Router classifies inbound envelopes and dispatches them over the current
// registry and index state. It holds no state of its own.
type Router struct {
	reg    *Registry
	idx    *Membership
	pres   *Presence
	engine Broadcaster
	sink   Sink
	log    zerolog.Logger
}

// NewRouter wires the event router. sink may be nil; persistence then becomes
// a no-op.
func NewRouter(reg *Registry, idx *Membership, pres *Presence, engine Broadcaster, sink Sink, log zerolog.Logger) *Router {
	return &Router{reg: reg, idx: idx, pres: pres, engine: engine, sink: sink, log: log}
}

// Dispatch routes one inbound envelope from the given connection. The user
// identity always comes from the registry, never from the frame.
func (r *Router) Dispatch(connID string, env *models.Envelope) {
	userID, ok := r.reg.UserOf(connID)
	if !ok {
		// Connection already torn down; drop the frame.
		return
	}
	r.reg.Touch(connID)
	env.UserID = userID
	if env.Timestamp == "" {
		env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	metrics.EventsTotal.WithLabelValues(eventLabel(env.Type)).Inc()

	switch env.Type {
	case models.EventJoin:
		r.handleJoin(connID, userID, env)
	case models.EventLeave:
		r.handleLeave(connID, userID, env)
	case models.EventMessage:
		r.handleMessage(connID, userID, env)
	case models.EventTyping:
		r.handleTyping(connID, userID, env)
	case models.EventPresence:
		r.handlePresence(connID, userID, env)
	case models.EventReaction:
		r.handleReaction(connID, userID, env)
	case models.EventRead:
		r.handleRead(connID, userID, env)
	default:
		r.replyError(connID, "unknown_type", "unsupported event type: "+string(env.Type))
	}
}

// HandleDisconnect tears down a connection: registry removal, membership
// reconciliation, and one disconnected presence record per joined channel.
// Graceful and abnormal closures both route through here; calling it twice
// for the same connection is harmless.
func (r *Router) HandleDisconnect(connID string) {
	sock, _ := r.reg.SocketOf(connID)
	userID, channels := r.reg.Unregister(connID)
	if userID == "" {
		return
	}
	// The transport may still be open (a full send queue fails sends while
	// the peer's TCP connection stays healthy); close it so the peer does
	// not keep talking to a connection the hub no longer knows.
	if sock != nil {
		_ = sock.Close()
	}
	for _, channelID := range channels {
		// Another device of the same user may still hold the channel.
		if !r.reg.UserHasChannel(userID, channelID) {
			r.idx.Leave(channelID, userID)
		}
	}
	r.pres.Disconnected(userID, channels)
	metrics.ConnectionsActive.Dec()
	r.log.Info().
		Str("conn_id", connID).
		Str("user_id", userID).
		Int("channels", len(channels)).
		Msg("connection unregistered")
}

func (r *Router) handleJoin(connID, userID string, env *models.Envelope) {
	if env.ChannelID == "" {
		r.replyError(connID, "invalid_channel", "channelId is required")
		return
	}
	fresh := r.idx.Join(env.ChannelID, userID)
	r.reg.AddChannel(connID, env.ChannelID)
	if fresh {
		r.pres.Joined(userID, env.ChannelID)
	}
	ack, err := models.NewEnvelope(models.EventAck, env.ChannelID, userID, models.AckPayload{ChannelID: env.ChannelID})
	if err != nil {
		return
	}
	r.replyTo(connID, ack)
}

func (r *Router) handleLeave(connID, userID string, env *models.Envelope) {
	if env.ChannelID == "" {
		r.replyError(connID, "invalid_channel", "channelId is required")
		return
	}
	r.reg.RemoveChannel(connID, env.ChannelID)
	if !r.reg.UserHasChannel(userID, env.ChannelID) {
		if r.idx.Leave(env.ChannelID, userID) {
			r.pres.Left(userID, env.ChannelID)
		}
	}
}

func (r *Router) handleMessage(connID, userID string, env *models.Envelope) {
	if env.ChannelID == "" {
		r.replyError(connID, "invalid_channel", "channelId is required")
		return
	}
	r.persistMessage(env)
	payload, err := env.Encode()
	if err != nil {
		r.replyError(connID, "encode_failed", "could not serialize message")
		return
	}
	// Echo to the originator is contract: the web client relies on the
	// round trip to confirm delivery.
	r.engine.ToChannel(env.ChannelID, payload, "")
}

func (r *Router) handleTyping(connID, userID string, env *models.Envelope) {
	if env.ChannelID == "" {
		r.replyError(connID, "invalid_channel", "channelId is required")
		return
	}
	payload, err := env.Encode()
	if err != nil {
		return
	}
	r.engine.ToChannel(env.ChannelID, payload, userID)
}

// handlePresence answers a members-snapshot request; reply to originator only.
func (r *Router) handlePresence(connID, userID string, env *models.Envelope) {
	if env.ChannelID == "" {
		r.replyError(connID, "invalid_channel", "channelId is required")
		return
	}
	members := r.idx.Members(env.ChannelID)
	sort.Strings(members)
	resp, err := models.NewEnvelope(models.EventPresence, env.ChannelID, userID, models.MembersPayload{
		ChannelID: env.ChannelID,
		Members:   members,
	})
	if err != nil {
		return
	}
	r.replyTo(connID, resp)
}

func (r *Router) handleReaction(connID, userID string, env *models.Envelope) {
	var p models.ReactionPayload
	if err := env.DecodeData(&p); err != nil {
		r.replyError(connID, "bad_payload", "reaction payload is malformed")
		return
	}
	payload, err := env.Encode()
	if err != nil {
		return
	}
	switch {
	case env.ChannelID != "":
		// Originator included for multi-device consistency.
		r.engine.ToChannel(env.ChannelID, payload, "")
	case p.To != "":
		r.engine.ToUser(p.To, payload)
		if p.To != userID {
			r.engine.ToUser(userID, payload)
		}
	default:
		r.replyError(connID, "invalid_target", "reaction needs a channelId or a to field")
	}
}

func (r *Router) handleRead(connID, userID string, env *models.Envelope) {
	var p models.ReadPayload
	if err := env.DecodeData(&p); err != nil {
		r.replyError(connID, "bad_payload", "read payload is malformed")
		return
	}
	r.persistRead(env)
	payload, err := env.Encode()
	if err != nil {
		return
	}
	switch {
	case env.ChannelID != "":
		// The sender does not need their own read receipt.
		r.engine.ToChannel(env.ChannelID, payload, userID)
	case p.To != "":
		r.engine.ToUser(p.To, payload)
	default:
		r.replyError(connID, "invalid_target", "read needs a channelId or a to field")
	}
}

func (r *Router) persistMessage(env *models.Envelope) {
	if r.sink == nil {
		return
	}
	cp := *env
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := r.sink.PersistMessage(ctx, &cp); err != nil {
			metrics.SinkErrors.Inc()
			r.log.Warn().Err(err).Str("channel_id", cp.ChannelID).Msg("message sink write failed")
		}
	}()
}

func (r *Router) persistRead(env *models.Envelope) {
	if r.sink == nil {
		return
	}
	cp := *env
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := r.sink.PersistRead(ctx, &cp); err != nil {
			metrics.SinkErrors.Inc()
			r.log.Warn().Err(err).Str("channel_id", cp.ChannelID).Msg("read sink write failed")
		}
	}()
}

func (r *Router) replyTo(connID string, env *models.Envelope) {
	sock, ok := r.reg.SocketOf(connID)
	if !ok {
		return
	}
	payload, err := env.Encode()
	if err != nil {
		return
	}
	if err := sock.Send(payload); err != nil {
		r.log.Warn().Str("conn_id", connID).Err(err).Msg("reply send failed")
	}
}

func (r *Router) replyError(connID, code, message string) {
	env, err := models.NewEnvelope(models.EventError, "", "", models.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	r.replyTo(connID, env)
}

// eventLabel keeps the metrics label set bounded; client-supplied types
// outside the protocol collapse to "unknown".
func eventLabel(t models.EventType) string {
	switch t {
	case models.EventJoin, models.EventLeave, models.EventMessage,
		models.EventTyping, models.EventPresence, models.EventReaction, models.EventRead:
		return string(t)
	}
	return "unknown"
}
