package server

import (
	"net"
	"sync"
	"testing"

	"github.com/duskhollow/comlink/pkg/prefstore"
)

func testDescriptor(t *testing.T, id int) *Descriptor {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return NewDescriptor(id, server)
}

// Preference mutations from the command goroutine run concurrently with
// nickname and ignore lookups from routing goroutines. Run under -race.
func TestDescriptorConcurrentPrefsAccess(t *testing.T) {
	d := testDescriptor(t, 1)
	d.Player = "bob"
	d.SetPrefs(&prefstore.Prefs{})

	conns := NewConns()
	conns.Bind("bob", d)
	names := &sessionNames{conns: conns}
	ignores := &sessionIgnores{conns: conns}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			d.WithPrefs(func(p *prefstore.Prefs) {
				p.Nickname = "Bobby"
				p.Ignored = append(p.Ignored[:0], "troll")
			})
			d.Touch(10)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			names.Nickname("bob")
			names.DisplayName("bob")
			ignores.Ignores("bob", "troll")
			d.Idle()
		}
	}()
	wg.Wait()

	if got := d.Nickname(); got != "Bobby" {
		t.Errorf("nickname after concurrent updates: %q", got)
	}
	if !d.IgnoresName("TROLL") {
		t.Error("ignore entry lost")
	}
	if cmds, in, _ := d.Stats(); cmds != 500 || in != 5000 {
		t.Errorf("counters: %d cmds, %d bytes in", cmds, in)
	}
}

func TestDescriptorPrefsCopyIndependent(t *testing.T) {
	d := testDescriptor(t, 2)
	d.SetPrefs(&prefstore.Prefs{Nickname: "Zed", Ignored: []string{"alice"}})

	cp := d.PrefsCopy()
	cp.Nickname = "changed"
	cp.Ignored[0] = "carol"
	cp.Favorites = append(cp.Favorites, "public")

	if d.Nickname() != "Zed" {
		t.Error("copy mutation reached the live nickname")
	}
	if !d.IgnoresName("alice") || d.IgnoresName("carol") {
		t.Error("copy mutation reached the live ignore list")
	}
}

func TestDescriptorPrefsBeforeLogin(t *testing.T) {
	d := testDescriptor(t, 3)

	d.WithPrefs(func(p *prefstore.Prefs) { p.Nickname = "ghost" })
	if d.Nickname() != "" {
		t.Error("mutation applied before prefs were installed")
	}
	if d.IgnoresName("anyone") {
		t.Error("ignore match with no prefs")
	}
	if cp := d.PrefsCopy(); cp.Nickname != "" || len(cp.Ignored) != 0 {
		t.Errorf("non-zero snapshot with no prefs: %+v", cp)
	}
}
