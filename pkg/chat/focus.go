package chat

import (
	"strings"
	"sync"
)

// FocusKind tags the two shapes a focus target can take.
type FocusKind int

const (
	FocusNone    FocusKind = iota // no focus set
	FocusChannel                  // plain chat routes to a channel
	FocusPlayer                   // plain chat routes to a direct-message target
)

// FocusTarget is where a player's plain chat input currently goes: either
// a channel name or a direct-message target. Call sites switch on Kind.
type FocusTarget struct {
	Kind    FocusKind
	Channel string   // set when Kind == FocusChannel
	Player  PlayerID // set when Kind == FocusPlayer
}

// ChannelFocus builds a channel-shaped focus target.
func ChannelFocus(name string) FocusTarget {
	return FocusTarget{Kind: FocusChannel, Channel: name}
}

// PlayerFocus builds a direct-message-shaped focus target.
func PlayerFocus(p PlayerID) FocusTarget {
	return FocusTarget{Kind: FocusPlayer, Player: p}
}

// Focuses tracks each player's current focus target and the sender of the
// last direct message they received (for the reply shortcut). All state
// is session-scoped and discarded at logout.
type Focuses struct {
	mu       sync.RWMutex
	focus    map[PlayerID]FocusTarget
	lastFrom map[PlayerID]PlayerID
}

// NewFocuses creates an empty focus store.
func NewFocuses() *Focuses {
	return &Focuses{
		focus:    make(map[PlayerID]FocusTarget),
		lastFrom: make(map[PlayerID]PlayerID),
	}
}

// set replaces the player's focus target.
func (f *Focuses) set(p PlayerID, target FocusTarget) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focus[p] = target
}

// get returns the player's focus target, if any.
func (f *Focuses) get(p PlayerID) (FocusTarget, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.focus[p]
	return t, ok
}

// clearIfChannel drops the focus when it currently points at the named
// channel. Used when membership in that channel is revoked.
func (f *Focuses) clearIfChannel(p PlayerID, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.focus[p]; ok && t.Kind == FocusChannel && strings.EqualFold(t.Channel, key) {
		delete(f.focus, p)
	}
}

// RecordIncomingDM overwrites the recipient's last-sender link. Called on
// every direct-message delivery, regardless of any prior reply direction.
func (f *Focuses) RecordIncomingDM(recipient, sender PlayerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFrom[recipient] = sender
}

// LastIncomingSender returns who last sent the player a direct message.
func (f *Focuses) LastIncomingSender(p PlayerID) (PlayerID, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.lastFrom[p]
	return s, ok
}

// clear discards all focus state for a player.
func (f *Focuses) clear(p PlayerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.focus, p)
	delete(f.lastFrom, p)
}
