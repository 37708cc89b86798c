package models

// Message represents a chat message stored in Redis.
type Message struct {
	ID        string `json:"id"` // ULID
	ChannelID string `json:"channel_id"`
	FromID    string `json:"from"`
	Body      string `json:"body"`
	ParentID  string `json:"pid,omitempty"` // For threading
	Timestamp int64  `json:"ts"`            // Unix ms
}
