package server

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// History writes every channel message to SQLite and serves scrollback
// queries. Rows past the retention window are purged hourly.
type History struct {
	db        *sql.DB
	retention time.Duration
	stop      chan struct{}
}

// HistoryRow is one stored channel line.
type HistoryRow struct {
	Channel string
	Sender  string
	Line    string
	At      time.Time
}

// OpenHistory opens or creates the history database. Retention of 0
// keeps rows forever.
func OpenHistory(path string, retention time.Duration) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: busy timeout: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS channel_history (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			channel TEXT NOT NULL COLLATE NOCASE,
			sender  TEXT NOT NULL,
			line    TEXT NOT NULL,
			at      INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_channel_at
			ON channel_history(channel, at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create tables: %w", err)
	}

	h := &History{db: db, retention: retention, stop: make(chan struct{})}
	if retention > 0 {
		go h.retentionLoop()
	}
	return h, nil
}

// Close stops the retention loop and closes the database.
func (h *History) Close() error {
	close(h.stop)
	return h.db.Close()
}

// Record stores one channel line. Failures are logged, never surfaced to
// chat delivery.
func (h *History) Record(channel, sender, line string) {
	_, err := h.db.Exec(
		"INSERT INTO channel_history (channel, sender, line, at) VALUES (?, ?, ?, ?)",
		channel, sender, line, time.Now().Unix())
	if err != nil {
		log.Printf("history: insert: %v", err)
	}
}

// Recent returns the last n lines on a channel, oldest first.
func (h *History) Recent(channel string, n int) ([]HistoryRow, error) {
	rows, err := h.db.Query(`
		SELECT channel, sender, line, at FROM channel_history
		WHERE channel = ? ORDER BY at DESC, id DESC LIMIT ?`,
		channel, n)
	if err != nil {
		return nil, fmt.Errorf("history: query %s: %w", channel, err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var r HistoryRow
		var at int64
		if err := rows.Scan(&r.Channel, &r.Sender, &r.Line, &at); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.At = time.Unix(at, 0)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Purge deletes rows older than the retention window and returns how
// many were removed.
func (h *History) Purge() (int64, error) {
	if h.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-h.retention).Unix()
	res, err := h.db.Exec("DELETE FROM channel_history WHERE at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: purge: %w", err)
	}
	return res.RowsAffected()
}

// retentionLoop purges old rows hourly until Close.
func (h *History) retentionLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			purged, err := h.Purge()
			if err != nil {
				log.Printf("history: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("history: purged %d old entries", purged)
			}
		case <-h.stop:
			return
		}
	}
}
