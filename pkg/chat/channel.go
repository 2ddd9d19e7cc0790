package chat

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// RangeUnlimited marks a channel as global: no distance threshold at all.
const RangeUnlimited = -1

// TypeLocal is the Type value that switches a channel from flat
// formatting to the suffix-driven local-chat sub-protocol.
const TypeLocal = "local"

// NameStyle selects which of a player's names a channel shows.
type NameStyle int

const (
	NameAccount  NameStyle = iota // login account name
	NameNickname                  // custom nickname, falling back to account name
	NameDisplay                   // cosmetic styled display name
)

// String returns the configuration spelling of the style.
func (s NameStyle) String() string {
	switch s {
	case NameNickname:
		return "nickname"
	case NameDisplay:
		return "display"
	default:
		return "account"
	}
}

// UnmarshalYAML reads a NameStyle from its configuration spelling.
func (s *NameStyle) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "account":
		*s = NameAccount
	case "nickname", "nick":
		*s = NameNickname
	case "display":
		*s = NameDisplay
	default:
		return fmt.Errorf("unknown name_style %q", raw)
	}
	return nil
}

// Channel is one configured conversation channel. Channels are loaded at
// session start and read-only thereafter; hot reload goes through
// Registry.Reset plus re-Add.
type Channel struct {
	Name           string    `yaml:"name"`
	DisplayPrefix  string    `yaml:"prefix"`
	Shortcut       string    `yaml:"shortcut"`
	Permission     string    `yaml:"permission"`
	Range          int       `yaml:"range"`
	NameColor      string    `yaml:"name_color"`
	Separator      string    `yaml:"separator"`
	SeparatorColor string    `yaml:"separator_color"`
	MessageColor   string    `yaml:"message_color"`
	AlwaysOn       bool      `yaml:"always_on"`
	Mature         bool      `yaml:"mature"`
	Type           string    `yaml:"type"`
	NameStyle      NameStyle `yaml:"name_style"`
}

// IsLocal reports whether the suffix sub-protocol applies to this channel.
func (c *Channel) IsLocal() bool { return c.Type == TypeLocal }

// Registry holds the configured channel set for the running session.
// Lookups are by lowercase name or by shortcut token; iteration preserves
// insertion order. Shortcut collisions resolve first-match-wins in
// insertion order.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Channel
	order  []string
}

// NewRegistry creates an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Channel)}
}

// Add inserts a channel, replacing any prior definition with the same
// name. Always-on channels are unconditionally public: any configured
// permission is discarded on the way in so it can never be observed.
func (r *Registry) Add(ch Channel) {
	if ch.AlwaysOn {
		ch.Permission = ""
	}
	key := strings.ToLower(ch.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[key]; !exists {
		r.order = append(r.order, key)
	}
	r.byName[key] = &ch
}

// ByName returns the channel with the given name (case-insensitive).
func (r *Registry) ByName(name string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.byName[strings.ToLower(name)]
	return ch, ok
}

// ByShortcut returns the first channel registered with the given shortcut
// token (case-insensitive).
func (r *Registry) ByShortcut(tok string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.order {
		ch := r.byName[key]
		if ch.Shortcut != "" && strings.EqualFold(ch.Shortcut, tok) {
			return ch, true
		}
	}
	return nil, false
}

// All returns every channel in insertion order.
func (r *Registry) All() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Channel, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byName[key])
	}
	return out
}

// Len returns the number of configured channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Reset clears the registry. Used for test isolation and before a
// configuration hot reload.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]*Channel)
	r.order = nil
}
