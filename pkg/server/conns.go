package server

import (
	"sort"
	"strings"
	"sync"

	"github.com/duskhollow/comlink/pkg/chat"
	"github.com/duskhollow/comlink/pkg/events"
)

// Conns is the registry of logged-in connections. One player holds at
// most one connection; a second login for the same account boots the
// first.
type Conns struct {
	mu       sync.RWMutex
	byPlayer map[chat.PlayerID]*Descriptor
	pending  map[int]*Descriptor // connected but not yet logged in
	nextID   int
}

// NewConns creates an empty connection registry.
func NewConns() *Conns {
	return &Conns{
		byPlayer: make(map[chat.PlayerID]*Descriptor),
		pending:  make(map[int]*Descriptor),
	}
}

// NextID allocates a descriptor ID.
func (c *Conns) NextID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID
}

// AddPending tracks a connection that has not logged in yet.
func (c *Conns) AddPending(d *Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[d.ID] = d
}

// Bind associates a logged-in descriptor with its player, returning any
// prior descriptor for the same player so the caller can boot it.
func (c *Conns) Bind(p chat.PlayerID, d *Descriptor) *Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, d.ID)
	prior := c.byPlayer[p]
	c.byPlayer[p] = d
	return prior
}

// Drop removes a descriptor from the registry. It only unbinds the
// player slot when this descriptor still owns it.
func (c *Conns) Drop(d *Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, d.ID)
	if d.Player != chat.Nobody && c.byPlayer[d.Player] == d {
		delete(c.byPlayer, d.Player)
	}
}

// Get returns the descriptor bound to a player.
func (c *Conns) Get(p chat.PlayerID) (*Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byPlayer[p]
	return d, ok
}

// Online returns all logged-in players, sorted.
func (c *Conns) Online() []chat.PlayerID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]chat.PlayerID, 0, len(c.byPlayer))
	for p := range c.byPlayer {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count returns how many players are logged in.
func (c *Conns) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byPlayer)
}

// directory adapts the connection registry and world positions to
// chat.Directory. Resolution covers account names and the nicknames of
// online players.
type directory struct {
	conns *Conns
	world *World
}

func (d *directory) IsOnline(p chat.PlayerID) bool {
	_, ok := d.conns.Get(p)
	return ok
}

func (d *directory) Resolve(name string) (chat.PlayerID, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return chat.Nobody, false
	}
	if _, ok := d.conns.Get(chat.PlayerID(strings.ToLower(name))); ok {
		return chat.PlayerID(strings.ToLower(name)), true
	}
	// Nickname match across online players.
	d.conns.mu.RLock()
	defer d.conns.mu.RUnlock()
	for p, desc := range d.conns.byPlayer {
		if strings.EqualFold(desc.Nickname(), name) {
			return p, true
		}
	}
	return chat.Nobody, false
}

func (d *directory) Online() []chat.PlayerID {
	return d.conns.Online()
}

func (d *directory) DistanceSquared(a, b chat.PlayerID) float64 {
	return d.world.DistanceSquared(a, b)
}

// busSink adapts the event bus to chat.Sink: each delivery becomes one
// per-player event.
type busSink struct {
	bus *events.Bus
}

func (s *busSink) SendToPlayer(p chat.PlayerID, line *chat.Text) {
	s.bus.Emit(events.Event{
		Type:   events.EvText,
		Player: p,
		Text:   line.Plain(),
		Styled: line,
	})
}

func (s *busSink) Notify(p chat.PlayerID, text string) {
	s.bus.Emit(events.Event{
		Type:   events.EvNotice,
		Player: p,
		Text:   text,
	})
}

// sessionNames resolves presentation names from live sessions: account
// spelling and nickname come from the logged-in descriptor, and the
// display name is the nickname decorated with the account spelling.
type sessionNames struct {
	conns *Conns
}

func (n *sessionNames) AccountName(p chat.PlayerID) string {
	if d, ok := n.conns.Get(p); ok && d.Account != nil {
		return d.Account.Name
	}
	return string(p)
}

func (n *sessionNames) Nickname(p chat.PlayerID) string {
	if d, ok := n.conns.Get(p); ok {
		return d.Nickname()
	}
	return ""
}

func (n *sessionNames) DisplayName(p chat.PlayerID) string {
	nick := n.Nickname(p)
	if nick == "" {
		return n.AccountName(p)
	}
	return nick + " (" + n.AccountName(p) + ")"
}

// sessionIgnores answers ignore checks from the recipient's live
// preference set.
type sessionIgnores struct {
	conns *Conns
}

func (ig *sessionIgnores) Ignores(recipient, sender chat.PlayerID) bool {
	d, ok := ig.conns.Get(recipient)
	if !ok {
		return false
	}
	return d.IgnoresName(string(sender))
}
