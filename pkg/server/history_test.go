package server

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestHistory(t *testing.T, retention time.Duration) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"), retention)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistoryRecordAndRecent(t *testing.T) {
	h := openTestHistory(t, 0)
	h.Record("General", "alice", "[G] alice: one")
	h.Record("General", "bob", "[G] bob: two")
	h.Record("Trade", "alice", "[T] alice: selling rope")

	rows, err := h.Recent("General", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Line != "[G] alice: one" || rows[1].Line != "[G] bob: two" {
		t.Errorf("rows out of order: %+v", rows)
	}
}

func TestHistoryRecentLimit(t *testing.T) {
	h := openTestHistory(t, 0)
	for i := 0; i < 5; i++ {
		h.Record("General", "alice", "line")
	}
	rows, err := h.Recent("General", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("limit ignored: %d rows", len(rows))
	}
}

func TestHistoryChannelCaseInsensitive(t *testing.T) {
	h := openTestHistory(t, 0)
	h.Record("General", "alice", "hello")
	rows, err := h.Recent("general", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("case-insensitive lookup failed: %d rows", len(rows))
	}
}

func TestHistoryPurge(t *testing.T) {
	h := openTestHistory(t, time.Hour)
	old := time.Now().Add(-2 * time.Hour).Unix()
	if _, err := h.db.Exec(
		"INSERT INTO channel_history (channel, sender, line, at) VALUES (?, ?, ?, ?)",
		"General", "alice", "ancient", old); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h.Record("General", "alice", "fresh")

	purged, err := h.Purge()
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged %d rows, want 1", purged)
	}
	rows, _ := h.Recent("General", 10)
	if len(rows) != 1 || rows[0].Line != "fresh" {
		t.Errorf("wrong rows survived: %+v", rows)
	}
}
