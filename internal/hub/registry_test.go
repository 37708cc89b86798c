package hub

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSocket records frames and can be flipped into a failing state. Shared
// by the package tests.
type fakeSocket struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

func (s *fakeSocket) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broken pipe")
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.frames = append(s.frames, cp)
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSocket) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *fakeSocket) all() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *fakeSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestRegistryRegisterUnregister(t *testing.T) {
	reg := NewRegistry()
	sock := &fakeSocket{}

	connID := reg.Register("alice", sock)
	if connID == "" {
		t.Fatal("expected a connection ID")
	}
	if got, ok := reg.UserOf(connID); !ok || got != "alice" {
		t.Fatalf("UserOf = %q, %v; want alice, true", got, ok)
	}
	if !reg.IsOnline("alice") {
		t.Error("alice should be online")
	}

	reg.AddChannel(connID, "general")
	reg.AddChannel(connID, "random")

	userID, channels := reg.Unregister(connID)
	if userID != "alice" {
		t.Errorf("Unregister user = %q, want alice", userID)
	}
	if len(channels) != 2 {
		t.Errorf("Unregister channels = %v, want 2 entries", channels)
	}
	if reg.IsOnline("alice") {
		t.Error("alice should be offline after unregister")
	}
	if reg.ConnCount() != 0 {
		t.Errorf("ConnCount = %d, want 0", reg.ConnCount())
	}
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	reg := NewRegistry()
	userID, channels := reg.Unregister("no-such-conn")
	if userID != "" || channels != nil {
		t.Errorf("got %q, %v; want empty results", userID, channels)
	}
}

func TestRegistryMultiDevice(t *testing.T) {
	reg := NewRegistry()
	phone := reg.Register("alice", &fakeSocket{})
	laptop := reg.Register("alice", &fakeSocket{})

	if reg.DeviceCount("alice") != 2 {
		t.Fatalf("DeviceCount = %d, want 2", reg.DeviceCount("alice"))
	}
	if reg.UserCount() != 1 {
		t.Errorf("UserCount = %d, want 1", reg.UserCount())
	}

	reg.AddChannel(phone, "general")
	reg.AddChannel(laptop, "general")

	// Dropping one device must not drop channel ownership.
	reg.Unregister(phone)
	if !reg.UserHasChannel("alice", "general") {
		t.Error("alice should still hold general through the laptop")
	}

	reg.RemoveChannel(laptop, "general")
	if reg.UserHasChannel("alice", "general") {
		t.Error("alice should no longer hold general")
	}
}

func TestRegistryAddRemoveChannelIdempotent(t *testing.T) {
	reg := NewRegistry()
	connID := reg.Register("alice", &fakeSocket{})

	reg.AddChannel(connID, "general")
	reg.AddChannel(connID, "general")
	if got := reg.JoinedChannels(connID); len(got) != 1 {
		t.Errorf("JoinedChannels = %v, want one entry", got)
	}

	reg.RemoveChannel(connID, "general")
	reg.RemoveChannel(connID, "general")
	if got := reg.JoinedChannels(connID); len(got) != 0 {
		t.Errorf("JoinedChannels = %v, want empty", got)
	}

	// Unknown conn IDs are silent no-ops.
	reg.AddChannel("gone", "general")
	reg.RemoveChannel("gone", "general")
}

func TestRegistryConnsOf(t *testing.T) {
	reg := NewRegistry()
	s1 := &fakeSocket{}
	s2 := &fakeSocket{}
	reg.Register("alice", s1)
	reg.Register("alice", s2)
	reg.Register("bob", &fakeSocket{})

	refs := reg.ConnsOf("alice")
	if len(refs) != 2 {
		t.Fatalf("ConnsOf = %d refs, want 2", len(refs))
	}
	for _, ref := range refs {
		if ref.ID == "" || ref.Sock == nil {
			t.Errorf("incomplete ref: %+v", ref)
		}
	}

	if got := reg.ConnsOf("nobody"); len(got) != 0 {
		t.Errorf("ConnsOf(nobody) = %d refs, want 0", len(got))
	}
}

func TestRegistryLastSeen(t *testing.T) {
	reg := NewRegistry()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	reg.clock = func() time.Time { return now }

	connID := reg.Register("alice", &fakeSocket{})
	if last, ok := reg.LastSeen("alice"); !ok || !last.Equal(now) {
		t.Fatalf("LastSeen = %v, %v; want %v, true", last, ok, now)
	}

	now = now.Add(5 * time.Minute)
	reg.Touch(connID)
	if last, _ := reg.LastSeen("alice"); !last.Equal(now) {
		t.Errorf("LastSeen after Touch = %v, want %v", last, now)
	}

	if _, ok := reg.LastSeen("nobody"); ok {
		t.Error("LastSeen(nobody) should report false")
	}
}

func TestRegistryCloseAll(t *testing.T) {
	reg := NewRegistry()
	s1 := &fakeSocket{}
	s2 := &fakeSocket{}
	reg.Register("alice", s1)
	reg.Register("bob", s2)

	reg.CloseAll()

	if !s1.isClosed() || !s2.isClosed() {
		t.Error("all sockets should be closed")
	}
	if reg.ConnCount() != 0 || reg.UserCount() != 0 {
		t.Error("registry should be empty after CloseAll")
	}
}
