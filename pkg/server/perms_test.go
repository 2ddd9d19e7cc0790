package server

import (
	"path/filepath"
	"testing"

	"github.com/duskhollow/comlink/pkg/chat"
	"github.com/duskhollow/comlink/pkg/prefstore"
)

func testPerms(t *testing.T) (*Perms, *prefstore.Store) {
	t.Helper()
	store, err := prefstore.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewPerms(store), store
}

func TestPermsExplicitCapability(t *testing.T) {
	p, store := testPerms(t)
	store.PutAccount(&prefstore.Account{Name: "Alice", Level: 1, Caps: []string{"chat.staff"}})

	if !p.HasPermission("alice", "chat.staff", chat.PermLevelChannel) {
		t.Error("explicit capability denied")
	}
	if p.HasPermission("alice", "chat.other", chat.PermLevelChannel) {
		t.Error("unrelated capability granted at level 1")
	}
}

func TestPermsLevelFallback(t *testing.T) {
	p, store := testPerms(t)
	store.PutAccount(&prefstore.Account{Name: "Mod", Level: chat.PermLevelChannel})

	if !p.HasPermission("mod", "chat.anything", chat.PermLevelChannel) {
		t.Error("level at threshold denied")
	}
	if p.HasPermission("mod", "chat.anything", chat.PermLevelAdmin) {
		t.Error("level below admin threshold granted")
	}
}

func TestPermsUnknownAccount(t *testing.T) {
	p, _ := testPerms(t)
	if p.HasPermission("ghost", "chat.staff", chat.PermLevelChannel) {
		t.Error("unknown account granted")
	}
	if p.IsAdmin("ghost") {
		t.Error("unknown account is admin")
	}
}

func TestPermsIsAdmin(t *testing.T) {
	p, store := testPerms(t)
	store.PutAccount(&prefstore.Account{Name: "Root", Level: chat.PermLevelAdmin})
	store.PutAccount(&prefstore.Account{Name: "Helper", Level: 1, Caps: []string{"admin"}})
	store.PutAccount(&prefstore.Account{Name: "Pleb", Level: 1})

	if !p.IsAdmin("root") || !p.IsAdmin("helper") {
		t.Error("admin grant missing")
	}
	if p.IsAdmin("pleb") {
		t.Error("level 1 account is admin")
	}
}
