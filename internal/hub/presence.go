package hub

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Dry1ceD7/AAELink-sub002/internal/metrics"
	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

// Presence translates connection lifecycle mutations into presence records
// and drives their delivery. The originator never receives its own presence.
type Presence struct {
	engine Broadcaster
	log    zerolog.Logger
	clock  func() time.Time
}

// NewPresence creates a presence tracker emitting through the given engine.
func NewPresence(engine Broadcaster, log zerolog.Logger) *Presence {
	return &Presence{engine: engine, log: log, clock: time.Now}
}

// Joined announces the user to the other current members of the channel.
func (p *Presence) Joined(userID, channelID string) {
	p.emit(models.PresenceJoined, userID, channelID)
}

// Left announces an explicit leave to the remaining members.
func (p *Presence) Left(userID, channelID string) {
	p.emit(models.PresenceLeft, userID, channelID)
}

// Disconnected announces a socket close to the remaining members of every
// channel the connection had joined, exactly once per channel. A failure in
// one channel's fan-out does not stop teardown of the rest.
func (p *Presence) Disconnected(userID string, channels []string) {
	for _, channelID := range channels {
		p.emitRecovering(models.PresenceDisconnected, userID, channelID)
	}
}

func (p *Presence) emitRecovering(action models.PresenceAction, userID, channelID string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Str("user_id", userID).
				Str("channel_id", channelID).
				Interface("panic", r).
				Msg("presence fan-out panicked, continuing teardown")
		}
	}()
	p.emit(action, userID, channelID)
}

func (p *Presence) emit(action models.PresenceAction, userID, channelID string) {
	rec := models.PresenceRecord{
		Action:    action,
		UserID:    userID,
		ChannelID: channelID,
		Timestamp: p.clock().UTC().Format(time.RFC3339),
	}
	env, err := models.NewEnvelope(models.EventPresence, channelID, userID, rec)
	if err != nil {
		p.log.Error().Err(err).Msg("presence envelope marshal failed")
		return
	}
	payload, err := env.Encode()
	if err != nil {
		p.log.Error().Err(err).Msg("presence envelope encode failed")
		return
	}
	metrics.PresenceEvents.WithLabelValues(string(action)).Inc()
	p.engine.ToChannel(channelID, payload, userID)
}
