package chat

import "testing"

func TestRegistryAlwaysOnDropsPermission(t *testing.T) {
	r := NewRegistry()
	r.Add(Channel{Name: "General", AlwaysOn: true, Permission: "chat.general"})
	ch, ok := r.ByName("general")
	if !ok {
		t.Fatal("channel not found")
	}
	if ch.Permission != "" {
		t.Fatalf("always-on channel kept permission %q", ch.Permission)
	}
}

func TestRegistryLookupCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Add(Channel{Name: "Trade", Shortcut: "t"})
	if _, ok := r.ByName("TRADE"); !ok {
		t.Error("uppercase name lookup failed")
	}
	if _, ok := r.ByShortcut("T"); !ok {
		t.Error("uppercase shortcut lookup failed")
	}
}

func TestRegistryShortcutFirstMatchWins(t *testing.T) {
	r := NewRegistry()
	r.Add(Channel{Name: "General", Shortcut: "g"})
	r.Add(Channel{Name: "Guild", Shortcut: "g"})
	ch, ok := r.ByShortcut("g")
	if !ok || ch.Name != "General" {
		t.Fatalf("shortcut resolved to %v, want General", ch)
	}
}

func TestRegistryReplaceKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Add(Channel{Name: "A"})
	r.Add(Channel{Name: "B"})
	r.Add(Channel{Name: "A", DisplayPrefix: "[A]"})
	all := r.All()
	if len(all) != 2 || all[0].Name != "A" || all[0].DisplayPrefix != "[A]" {
		t.Fatalf("replace broke ordering: %+v", all)
	}
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry()
	r.Add(Channel{Name: "A"})
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("registry not empty after reset: %d", r.Len())
	}
	if _, ok := r.ByName("A"); ok {
		t.Error("stale channel survived reset")
	}
}
