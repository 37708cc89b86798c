package models

import (
	"encoding/json"
	"errors"
	"time"
)

// EventType classifies a wire envelope.
type EventType string

const (
	EventJoin     EventType = "join"
	EventLeave    EventType = "leave"
	EventMessage  EventType = "message"
	EventTyping   EventType = "typing"
	EventPresence EventType = "presence"
	EventReaction EventType = "reaction"
	EventRead     EventType = "read"

	// Server-originated envelope types.
	EventAck   EventType = "ack"
	EventError EventType = "error"
)

// ErrBadEnvelope is returned when an inbound frame cannot be decoded
// or is missing a required field.
var ErrBadEnvelope = errors.New("malformed envelope")

// Envelope is the unit exchanged between a connection and the realtime core.
// Data carries a type-specific payload and is decoded by the event router.
type Envelope struct {
	Type      EventType       `json:"type"`
	ChannelID string          `json:"channelId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ParseEnvelope decodes a raw inbound frame. The type field is required;
// unknown types are left for the router to reject.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrBadEnvelope
	}
	if env.Type == "" {
		return nil, ErrBadEnvelope
	}
	return &env, nil
}

// NewEnvelope builds an outbound envelope with the payload marshaled into Data
// and the timestamp stamped in RFC 3339.
func NewEnvelope(t EventType, channelID, userID string, payload interface{}) (*Envelope, error) {
	env := &Envelope{
		Type:      t,
		ChannelID: channelID,
		UserID:    userID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return env, nil
}

// Encode serializes the envelope for the wire.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeData unmarshals the opaque payload into the type-specific struct.
func (e *Envelope) DecodeData(v interface{}) error {
	if len(e.Data) == 0 {
		return ErrBadEnvelope
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return ErrBadEnvelope
	}
	return nil
}

// MessagePayload is the data variant for "message" envelopes.
type MessagePayload struct {
	ID       string `json:"id,omitempty"` // ULID, assigned by the persistence sink
	Body     string `json:"body"`
	ParentID string `json:"pid,omitempty"` // for threading
}

// TypingPayload is the data variant for "typing" envelopes.
type TypingPayload struct {
	Active bool `json:"active"`
}

// ReactionPayload is the data variant for "reaction" envelopes.
// To selects direct delivery when no channel is targeted.
type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	To        string `json:"to,omitempty"`
}

// ReadPayload is the data variant for "read" envelopes.
type ReadPayload struct {
	MessageID string `json:"messageId"`
	To        string `json:"to,omitempty"`
}

// AckPayload confirms a join to the originator.
type AckPayload struct {
	ChannelID string `json:"channelId"`
}

// ErrorPayload is sent to the originator only; errors never broadcast.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MembersPayload answers a presence snapshot request.
type MembersPayload struct {
	ChannelID string   `json:"channelId"`
	Members   []string `json:"members"`
}
