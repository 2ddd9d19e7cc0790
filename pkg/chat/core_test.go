package chat

import (
	"slices"
	"testing"
)

// capPerms grants the capabilities listed per player, nothing else.
type capPerms map[PlayerID][]string

func (c capPerms) HasPermission(p PlayerID, capability string, _ int) bool {
	return slices.Contains(c[p], capability)
}

// staticDir is an always-online directory with fixed positions.
type staticDir struct {
	players map[PlayerID][2]float64
}

func (d *staticDir) IsOnline(p PlayerID) bool {
	_, ok := d.players[p]
	return ok
}

func (d *staticDir) Resolve(name string) (PlayerID, bool) {
	p := PlayerID(name)
	_, ok := d.players[p]
	return p, ok
}

func (d *staticDir) Online() []PlayerID {
	out := make([]PlayerID, 0, len(d.players))
	for p := range d.players {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (d *staticDir) DistanceSquared(a, b PlayerID) float64 {
	pa, pb := d.players[a], d.players[b]
	dx, dy := pa[0]-pb[0], pa[1]-pb[1]
	return dx*dx + dy*dy
}

func testCore(t *testing.T, perms PermissionSource, dir Directory) *Core {
	t.Helper()
	if dir == nil {
		dir = &staticDir{players: map[PlayerID][2]float64{
			"alice": {0, 0}, "bob": {0, 0}, "carol": {0, 0},
		}}
	}
	c := NewCore(perms, dir)
	c.Channels.Add(Channel{Name: "General", Shortcut: "g", AlwaysOn: true})
	c.Channels.Add(Channel{Name: "Trade", Shortcut: "t"})
	c.Channels.Add(Channel{Name: "Staff", Shortcut: "s", Permission: "chat.staff"})
	c.SetReady()
	return c
}

func TestCoreJoinUnknownChannel(t *testing.T) {
	c := testCore(t, nil, nil)
	if c.Join("alice", "nope") {
		t.Error("joined a channel that does not exist")
	}
}

func TestCoreJoinPermissionDenied(t *testing.T) {
	c := testCore(t, capPerms{}, nil)
	if c.Join("alice", "Staff") {
		t.Error("joined a gated channel without the capability")
	}
	if c.IsJoined("alice", "Staff") {
		t.Error("membership recorded despite denial")
	}
}

func TestCoreJoinWithCapability(t *testing.T) {
	c := testCore(t, capPerms{"alice": {"chat.staff"}}, nil)
	if !c.Join("alice", "Staff") {
		t.Fatal("capability holder denied")
	}
	if !c.IsJoined("alice", "staff") {
		t.Error("membership not recorded")
	}
}

func TestCoreAlwaysOnMembershipImplicit(t *testing.T) {
	c := testCore(t, nil, nil)
	if !c.IsJoined("alice", "General") {
		t.Error("always-on channel not implicitly joined")
	}
	if !c.Join("alice", "General") {
		t.Error("joining an always-on channel should succeed")
	}
	if got := c.JoinedChannels("alice"); len(got) != 0 {
		t.Errorf("always-on join recorded explicit membership: %v", got)
	}
	c.Leave("alice", "General")
	if !c.IsJoined("alice", "General") {
		t.Error("left an always-on channel")
	}
}

func TestCoreAdminRevokeRefusesAlwaysOn(t *testing.T) {
	c := testCore(t, nil, nil)
	if c.AdminRevoke("alice", "General") {
		t.Error("revoked membership in an always-on channel")
	}
}

func TestCoreLeaveClearsFocus(t *testing.T) {
	c := testCore(t, nil, nil)
	if !c.SetChannelFocus("alice", "Trade") {
		t.Fatal("focus failed")
	}
	c.Leave("alice", "Trade")
	if _, ok := c.FocusOf("alice"); ok {
		t.Error("focus survived leaving the focused channel")
	}
}

func TestCoreLeaveOtherChannelKeepsFocus(t *testing.T) {
	c := testCore(t, capPerms{"alice": {"chat.staff"}}, nil)
	c.Join("alice", "Staff")
	c.SetChannelFocus("alice", "Trade")
	c.Leave("alice", "Staff")
	if fc, ok := c.FocusedChannel("alice"); !ok || fc.Name != "Trade" {
		t.Errorf("unrelated leave disturbed focus: %v %v", fc, ok)
	}
}

func TestCoreFocusImpliesJoin(t *testing.T) {
	c := testCore(t, nil, nil)
	if !c.SetChannelFocus("alice", "Trade") {
		t.Fatal("focus failed")
	}
	if !c.IsJoined("alice", "Trade") {
		t.Error("focusing did not join the channel")
	}
}

func TestCoreFocusDeniedKeepsPriorFocus(t *testing.T) {
	c := testCore(t, capPerms{}, nil)
	c.SetChannelFocus("alice", "Trade")
	if c.SetChannelFocus("alice", "Staff") {
		t.Fatal("focused a channel without permission")
	}
	if fc, ok := c.FocusedChannel("alice"); !ok || fc.Name != "Trade" {
		t.Errorf("failed focus switch clobbered prior focus: %v %v", fc, ok)
	}
}

func TestCoreDMFocus(t *testing.T) {
	c := testCore(t, nil, nil)
	c.SetDMFocus("alice", "bob")
	target, ok := c.FocusOf("alice")
	if !ok || target.Kind != FocusPlayer || target.Player != "bob" {
		t.Fatalf("dm focus = %+v %v", target, ok)
	}
	if _, ok := c.FocusedChannel("alice"); ok {
		t.Error("FocusedChannel answered for a direct-message focus")
	}
}

func TestCoreMembersOf(t *testing.T) {
	dir := &staticDir{players: map[PlayerID][2]float64{"alice": {0, 0}, "bob": {0, 0}}}
	c := NewCore(nil, dir)
	c.Channels.Add(Channel{Name: "General", AlwaysOn: true})
	c.Channels.Add(Channel{Name: "Trade"})
	c.SetReady()

	c.Join("alice", "Trade")
	c.Join("bob", "Trade")

	if got := c.MembersOf("General"); len(got) != 2 {
		t.Errorf("always-on members = %v, want all online", got)
	}
	if got := c.MembersOf("Trade"); len(got) != 2 {
		t.Errorf("trade members = %v", got)
	}
	if got := c.MembersOf("nope"); got != nil {
		t.Errorf("unknown channel members = %v, want nil", got)
	}
}

func TestCoreMembersOfSkipsOffline(t *testing.T) {
	dir := &staticDir{players: map[PlayerID][2]float64{"alice": {0, 0}}}
	c := NewCore(nil, dir)
	c.Channels.Add(Channel{Name: "Trade"})
	c.SetReady()
	c.Join("alice", "Trade")
	c.Members.add("ghost", "trade")
	got := c.MembersOf("Trade")
	if len(got) != 1 || got[0] != "alice" {
		t.Errorf("offline member delivered: %v", got)
	}
}

func TestCoreLogout(t *testing.T) {
	c := testCore(t, nil, nil)
	c.SetChannelFocus("alice", "Trade")
	c.Focus.RecordIncomingDM("alice", "bob")
	c.Logout("alice")
	if c.IsJoined("alice", "Trade") {
		t.Error("membership survived logout")
	}
	if _, ok := c.FocusOf("alice"); ok {
		t.Error("focus survived logout")
	}
	if _, ok := c.Focus.LastIncomingSender("alice"); ok {
		t.Error("reply link survived logout")
	}
}
