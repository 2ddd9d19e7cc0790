package chat

import (
	"sort"
	"sync"
)

// Memberships tracks each player's joined-channel set for the session.
// The set is plain state; channel existence, permission gating, and the
// always-on rules live on Core, which wraps these primitives.
type Memberships struct {
	mu     sync.RWMutex
	joined map[PlayerID]map[string]struct{} // lowercase channel names
}

// NewMemberships creates an empty membership store.
func NewMemberships() *Memberships {
	return &Memberships{joined: make(map[PlayerID]map[string]struct{})}
}

// add records membership. Reports whether the player was newly added.
func (m *Memberships) add(p PlayerID, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.joined[p]
	if set == nil {
		set = make(map[string]struct{})
		m.joined[p] = set
	}
	if _, ok := set[key]; ok {
		return false
	}
	set[key] = struct{}{}
	return true
}

// remove deletes membership. Reports whether the player was a member.
func (m *Memberships) remove(p PlayerID, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.joined[p]
	if !ok {
		return false
	}
	if _, member := set[key]; !member {
		return false
	}
	delete(set, key)
	if len(set) == 0 {
		delete(m.joined, p)
	}
	return true
}

// has reports raw membership, ignoring always-on implicit membership.
func (m *Memberships) has(p PlayerID, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.joined[p][key]
	return ok
}

// setOf returns a sorted copy of the player's joined channel names.
func (m *Memberships) setOf(p PlayerID) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.joined[p]))
	for key := range m.joined[p] {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// membersFor returns every player with raw membership in the channel, in
// unspecified order.
func (m *Memberships) membersFor(key string) []PlayerID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []PlayerID
	for p, set := range m.joined {
		if _, ok := set[key]; ok {
			out = append(out, p)
		}
	}
	return out
}

// clear discards all membership for a player.
func (m *Memberships) clear(p PlayerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.joined, p)
}
