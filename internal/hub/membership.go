package hub

import "sync"

// Membership maps a channel to the set of user identities currently
// subscribed to it. It mirrors the per-connection joined sets held by the
// registry; every join or leave mutates both from the router.
type Membership struct {
	mu       sync.RWMutex
	channels map[string]map[string]struct{}
}

// NewMembership creates an empty channel membership index.
func NewMembership() *Membership {
	return &Membership{channels: make(map[string]map[string]struct{})}
}

// Join adds the user to the channel's member set. It reports whether the
// (channel, user) pair was newly added, so callers can suppress duplicate
// presence announcements. Idempotent.
func (m *Membership) Join(channelID, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.channels[channelID]
	if !ok {
		set = make(map[string]struct{})
		m.channels[channelID] = set
	}
	if _, exists := set[userID]; exists {
		return false
	}
	set[userID] = struct{}{}
	return true
}

// Leave removes the user from the channel, pruning the channel entry when it
// empties. It reports whether the user was a member.
func (m *Membership) Leave(channelID, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.channels[channelID]
	if !ok {
		return false
	}
	if _, exists := set[userID]; !exists {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(m.channels, channelID)
	}
	return true
}

// Members returns a copy of the channel's member set. Unknown channels yield
// an empty slice, never an error.
func (m *Membership) Members(channelID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.channels[channelID]
	out := make([]string, 0, len(set))
	for userID := range set {
		out = append(out, userID)
	}
	return out
}

// MemberCount returns the size of the channel's member set.
func (m *Membership) MemberCount(channelID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels[channelID])
}

// ChannelCount returns the number of channels with at least one member.
func (m *Membership) ChannelCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}
