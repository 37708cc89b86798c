package models

// PresenceAction is the observable lifecycle transition of a user within a channel.
type PresenceAction string

const (
	PresenceJoined       PresenceAction = "joined"
	PresenceLeft         PresenceAction = "left"
	PresenceDisconnected PresenceAction = "disconnected"
)

// PresenceRecord is the transient tuple emitted by the presence tracker.
// It has no lifecycle beyond the broadcast that carries it.
type PresenceRecord struct {
	Action    PresenceAction `json:"action"`
	UserID    string         `json:"userId"`
	ChannelID string         `json:"channelId"`
	Timestamp string         `json:"timestamp"`
}
