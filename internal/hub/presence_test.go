package hub

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Dry1ceD7/AAELink-sub002/internal/models"
)

type recordedSend struct {
	channelID string
	payload   []byte
	exclude   string
}

// recordingBroadcaster captures fan-outs; panicOn makes one channel's
// delivery blow up to exercise teardown isolation.
type recordingBroadcaster struct {
	sends   []recordedSend
	panicOn string
}

func (b *recordingBroadcaster) ToChannel(channelID string, payload []byte, excludeUserID string) {
	if channelID == b.panicOn {
		panic("fan-out failure")
	}
	b.sends = append(b.sends, recordedSend{channelID: channelID, payload: payload, exclude: excludeUserID})
}

func (b *recordingBroadcaster) ToUser(userID string, payload []byte) {}

func decodePresence(t *testing.T, payload []byte) models.PresenceRecord {
	t.Helper()
	var env models.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Type != models.EventPresence {
		t.Fatalf("envelope type = %q, want presence", env.Type)
	}
	var rec models.PresenceRecord
	if err := env.DecodeData(&rec); err != nil {
		t.Fatalf("bad presence payload: %v", err)
	}
	return rec
}

func TestPresenceJoinedExcludesOriginator(t *testing.T) {
	b := &recordingBroadcaster{}
	pres := NewPresence(b, zerolog.Nop())

	pres.Joined("alice", "general")

	if len(b.sends) != 1 {
		t.Fatalf("got %d sends, want 1", len(b.sends))
	}
	if b.sends[0].exclude != "alice" {
		t.Errorf("exclude = %q, want alice", b.sends[0].exclude)
	}
	rec := decodePresence(t, b.sends[0].payload)
	if rec.Action != models.PresenceJoined || rec.UserID != "alice" || rec.ChannelID != "general" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Timestamp == "" {
		t.Error("presence record missing timestamp")
	}
}

func TestPresenceLeft(t *testing.T) {
	b := &recordingBroadcaster{}
	pres := NewPresence(b, zerolog.Nop())

	pres.Left("bob", "random")

	if len(b.sends) != 1 {
		t.Fatalf("got %d sends, want 1", len(b.sends))
	}
	if rec := decodePresence(t, b.sends[0].payload); rec.Action != models.PresenceLeft {
		t.Errorf("action = %q, want left", rec.Action)
	}
}

func TestPresenceDisconnectedOncePerChannel(t *testing.T) {
	b := &recordingBroadcaster{}
	pres := NewPresence(b, zerolog.Nop())

	pres.Disconnected("alice", []string{"general", "random"})

	if len(b.sends) != 2 {
		t.Fatalf("got %d sends, want 2", len(b.sends))
	}
	seen := map[string]bool{}
	for _, s := range b.sends {
		rec := decodePresence(t, s.payload)
		if rec.Action != models.PresenceDisconnected {
			t.Errorf("action = %q, want disconnected", rec.Action)
		}
		if seen[rec.ChannelID] {
			t.Errorf("duplicate disconnected record for %q", rec.ChannelID)
		}
		seen[rec.ChannelID] = true
	}
}

func TestPresenceDisconnectedSurvivesFanOutPanic(t *testing.T) {
	b := &recordingBroadcaster{panicOn: "general"}
	pres := NewPresence(b, zerolog.Nop())

	pres.Disconnected("alice", []string{"general", "random"})

	if len(b.sends) != 1 {
		t.Fatalf("got %d sends, want 1 (random only)", len(b.sends))
	}
	if b.sends[0].channelID != "random" {
		t.Errorf("surviving send went to %q, want random", b.sends[0].channelID)
	}
}
