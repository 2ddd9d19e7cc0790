// Package chat implements the channel/focus state machine and the
// message-routing pipeline for the comlink chat layer. It owns no I/O:
// permissions, the online-player directory, and delivery are narrow
// interfaces the host platform wires in at startup.
package chat

// PlayerID is the stable identity of a player for the lifetime of an
// account. Connections come and go; the PlayerID does not.
type PlayerID string

// Nobody is the zero PlayerID.
const Nobody PlayerID = ""

// PermLevelChannel is the numeric fallback level used when checking a
// channel capability against a permission backend that has no explicit
// grant recorded.
const PermLevelChannel = 2

// PermLevelAdmin is the numeric fallback level for moderation commands.
const PermLevelAdmin = 4

// PermissionSource answers capability checks. Implementations must be
// cheap; the router queries them fresh on every send and on every
// recipient at broadcast time, never caching across messages.
type PermissionSource interface {
	HasPermission(p PlayerID, capability string, fallbackLevel int) bool
}

// NopPerms is a PermissionSource that allows everything. Selected at
// startup when the host runs without a permission backend.
type NopPerms struct{}

// HasPermission always returns true.
func (NopPerms) HasPermission(PlayerID, string, int) bool { return true }

// Directory exposes the set of currently online players. "Not found" is
// treated as offline everywhere in the router.
type Directory interface {
	// IsOnline reports whether the player currently has a live connection.
	IsOnline(p PlayerID) bool
	// Resolve finds an online player by account name or nickname
	// (case-insensitive). It fails for offline players.
	Resolve(name string) (PlayerID, bool)
	// Online returns all currently online players.
	Online() []PlayerID
	// DistanceSquared returns the squared world distance between two
	// online players.
	DistanceSquared(a, b PlayerID) float64
}

// Sink is the delivery primitive. The router never broadcasts blindly;
// every send names an explicit recipient it selected itself.
type Sink interface {
	// SendToPlayer delivers one formatted chat line to one recipient.
	SendToPlayer(p PlayerID, line *Text)
	// Notify delivers a system notice (errors, confirmations) to a player.
	Notify(p PlayerID, text string)
}

// NameSource resolves the three presentation names a channel's NameStyle
// can select between.
type NameSource interface {
	AccountName(p PlayerID) string
	// Nickname returns the player's custom nickname, or "" if unset.
	Nickname(p PlayerID) string
	// DisplayName returns the cosmetic styled display name.
	DisplayName(p PlayerID) string
}

// IgnorePolicy filters deliveries between players. A nil policy means
// nobody ignores anybody.
type IgnorePolicy interface {
	Ignores(recipient, sender PlayerID) bool
}

// RelayHook is invoked once per channel message with the flat formatted
// line, before any per-recipient distance filtering. The community-chat
// bridge, history writer, and metrics all hang off this hook.
type RelayHook func(channel, sender, line string)
