package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"message","channelId":"general","data":{"body":"hi"}}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.Type != EventMessage || env.ChannelID != "general" {
		t.Errorf("envelope = %+v", env)
	}

	var p MessagePayload
	if err := env.DecodeData(&p); err != nil {
		t.Fatal(err)
	}
	if p.Body != "hi" {
		t.Errorf("body = %q, want hi", p.Body)
	}
}

func TestParseEnvelopeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"channelId":"general"}`, `[1,2,3]`} {
		if _, err := ParseEnvelope([]byte(raw)); !errors.Is(err, ErrBadEnvelope) {
			t.Errorf("ParseEnvelope(%q) err = %v, want ErrBadEnvelope", raw, err)
		}
	}
}

func TestNewEnvelopeStampsTimestamp(t *testing.T) {
	env, err := NewEnvelope(EventPresence, "general", "alice", PresenceRecord{Action: PresenceJoined})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC 3339: %v", env.Timestamp, err)
	}
}

func TestDecodeDataEmpty(t *testing.T) {
	env := &Envelope{Type: EventRead}
	var p ReadPayload
	if err := env.DecodeData(&p); !errors.Is(err, ErrBadEnvelope) {
		t.Errorf("err = %v, want ErrBadEnvelope", err)
	}
}
