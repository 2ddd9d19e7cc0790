package chat

import (
	"strings"
	"sync/atomic"
)

// Core is the dependency-injected handle over the three session stores.
// It owns every operation that crosses store boundaries: joining is gated
// on channel existence and permission, focusing a channel implies joining
// it, leaving a focused channel drops the focus, and logout discards the
// whole session slice for a player. One Core exists per server session.
type Core struct {
	Channels *Registry
	Members  *Memberships
	Focus    *Focuses

	perms PermissionSource
	dir   Directory
	ready atomic.Bool
}

// NewCore wires a Core from its collaborators.
func NewCore(perms PermissionSource, dir Directory) *Core {
	if perms == nil {
		perms = NopPerms{}
	}
	return &Core{
		Channels: NewRegistry(),
		Members:  NewMemberships(),
		Focus:    NewFocuses(),
		perms:    perms,
		dir:      dir,
	}
}

// SetReady marks channel configuration as loaded. Until then the router
// refuses all traffic.
func (c *Core) SetReady() { c.ready.Store(true) }

// Ready reports whether channel configuration has finished loading.
func (c *Core) Ready() bool { return c.ready.Load() }

// Permitted checks the sender's capability for a channel. Always-on
// channels never carry a permission; an empty capability always passes.
func (c *Core) Permitted(p PlayerID, ch *Channel) bool {
	if ch.AlwaysOn || ch.Permission == "" {
		return true
	}
	return c.perms.HasPermission(p, ch.Permission, PermLevelChannel)
}

// Join adds the player to a channel. It fails when the channel does not
// exist or the player lacks its permission. Joining an always-on channel
// succeeds without recording anything: membership there is implicit and
// permanent.
func (c *Core) Join(p PlayerID, channel string) bool {
	ch, ok := c.Channels.ByName(channel)
	if !ok {
		return false
	}
	if ch.AlwaysOn {
		return true
	}
	if !c.Permitted(p, ch) {
		return false
	}
	c.Members.add(p, strings.ToLower(ch.Name))
	return true
}

// Leave removes the player from a channel. Always-on channels cannot be
// left; leaving a channel never joined is a no-op. If the channel was the
// player's focus, the focus is cleared.
func (c *Core) Leave(p PlayerID, channel string) {
	ch, ok := c.Channels.ByName(channel)
	if ok && ch.AlwaysOn {
		return
	}
	key := strings.ToLower(channel)
	if c.Members.remove(p, key) {
		c.Focus.clearIfChannel(p, key)
	}
}

// AdminRevoke removes a player's membership on behalf of a third party
// (permission-loss enforcement or moderator action). It fails for
// always-on channels and for non-members.
func (c *Core) AdminRevoke(p PlayerID, channel string) bool {
	ch, ok := c.Channels.ByName(channel)
	if ok && ch.AlwaysOn {
		return false
	}
	key := strings.ToLower(channel)
	if !c.Members.remove(p, key) {
		return false
	}
	c.Focus.clearIfChannel(p, key)
	return true
}

// IsJoined reports membership. Every player is implicitly a member of
// every always-on channel.
func (c *Core) IsJoined(p PlayerID, channel string) bool {
	if ch, ok := c.Channels.ByName(channel); ok && ch.AlwaysOn {
		return true
	}
	return c.Members.has(p, strings.ToLower(channel))
}

// JoinedChannels returns the player's explicitly joined channels, sorted.
func (c *Core) JoinedChannels(p PlayerID) []string {
	return c.Members.setOf(p)
}

// MembersOf returns the channel's currently online members. Always-on
// channels answer with every online player; unknown channels answer with
// nothing.
func (c *Core) MembersOf(channel string) []PlayerID {
	ch, ok := c.Channels.ByName(channel)
	if !ok {
		return nil
	}
	if ch.AlwaysOn {
		return c.dir.Online()
	}
	var online []PlayerID
	for _, p := range c.Members.membersFor(strings.ToLower(ch.Name)) {
		if c.dir.IsOnline(p) {
			online = append(online, p)
		}
	}
	return online
}

// SetChannelFocus focuses the player on a channel, joining it first
// (focus requires membership). It fails when the join fails; on failure
// the prior focus is untouched.
func (c *Core) SetChannelFocus(p PlayerID, channel string) bool {
	ch, ok := c.Channels.ByName(channel)
	if !ok {
		return false
	}
	if !c.Join(p, ch.Name) {
		return false
	}
	c.Focus.set(p, ChannelFocus(ch.Name))
	return true
}

// SetDMFocus focuses the player on a direct-message target. Direct focus
// needs no membership, so it always succeeds.
func (c *Core) SetDMFocus(p, target PlayerID) {
	c.Focus.set(p, PlayerFocus(target))
}

// FocusOf returns the player's current focus target, if any.
func (c *Core) FocusOf(p PlayerID) (FocusTarget, bool) {
	return c.Focus.get(p)
}

// FocusedChannel returns the configuration of the player's focused
// channel, present only when the focus is a channel that still exists.
func (c *Core) FocusedChannel(p PlayerID) (*Channel, bool) {
	t, ok := c.Focus.get(p)
	if !ok || t.Kind != FocusChannel {
		return nil, false
	}
	return c.Channels.ByName(t.Channel)
}

// Logout discards all session chat state for a player. Reconnecting
// identities reusing a slot must start clean.
func (c *Core) Logout(p PlayerID) {
	c.Members.clear(p)
	c.Focus.clear(p)
}
