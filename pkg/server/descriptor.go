package server

import (
	"bufio"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/duskhollow/comlink/pkg/chat"
	"github.com/duskhollow/comlink/pkg/events"
	"github.com/duskhollow/comlink/pkg/prefstore"
)

// ConnState tracks the state of a connection.
type ConnState int

const (
	ConnLogin     ConnState = iota // pre-login: awaiting connect/create
	ConnConnected                  // logged in
)

// Descriptor represents a single client connection. It implements
// events.Subscriber so it can receive events from the bus; styled events
// are rendered to ANSI on the way out.
//
// ID, Conn, Addr, ConnTime, and Retries are fixed at creation. State,
// Player, and Account are written once at login, before the descriptor
// becomes reachable from other goroutines through Conns.Bind. The
// preference set and activity counters mutate for the life of the
// session and are shared with routing goroutines, so access goes
// through the locked methods below.
type Descriptor struct {
	ID       int
	Conn     net.Conn
	Reader   *bufio.Reader
	State    ConnState
	Player   chat.PlayerID
	Account  *prefstore.Account
	Addr     string
	ConnTime time.Time
	Retries  int

	mu     sync.Mutex
	closed bool

	stateMu   sync.Mutex
	prefs     *prefstore.Prefs
	lastCmd   time.Time
	cmdCount  int
	bytesSent int
	bytesRecv int
}

// NewDescriptor wraps a net.Conn into a Descriptor.
func NewDescriptor(id int, conn net.Conn) *Descriptor {
	now := time.Now()
	return &Descriptor{
		ID:       id,
		Conn:     conn,
		Reader:   bufio.NewReaderSize(conn, 4096),
		State:    ConnLogin,
		Player:   chat.Nobody,
		Addr:     conn.RemoteAddr().String(),
		ConnTime: now,
		lastCmd:  now,
		Retries:  3,
	}
}

// Send writes a string to the client connection.
func (d *Descriptor) Send(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	// Ensure lines end with \r\n for telnet
	if !strings.HasSuffix(msg, "\n") {
		msg += "\r\n"
	}
	d.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	n, _ := d.Conn.Write([]byte(msg))
	d.stateMu.Lock()
	d.bytesSent += n
	d.stateMu.Unlock()
}

// Close shuts down the connection.
func (d *Descriptor) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		d.Conn.Close()
	}
}

// Closed implements events.Subscriber.
func (d *Descriptor) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Receive implements events.Subscriber. Styled events render to ANSI;
// everything else falls back to the plain text form.
func (d *Descriptor) Receive(ev events.Event) {
	if ev.Styled != nil {
		d.Send(ev.Styled.ANSI())
		return
	}
	if ev.Text != "" {
		d.Send(ev.Text)
	}
}

// SetPrefs installs the session preference set at login.
func (d *Descriptor) SetPrefs(p *prefstore.Prefs) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.prefs = p
}

// WithPrefs runs fn with the preference set held under the session
// lock, so mutations are safe against concurrent routing-side reads.
// Persisting the result is the caller's job. No-op before login.
func (d *Descriptor) WithPrefs(fn func(p *prefstore.Prefs)) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.prefs != nil {
		fn(d.prefs)
	}
}

// PrefsCopy returns an independent snapshot of the preference set.
func (d *Descriptor) PrefsCopy() prefstore.Prefs {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.prefs == nil {
		return prefstore.Prefs{}
	}
	cp := *d.prefs
	cp.Ignored = slices.Clone(d.prefs.Ignored)
	cp.Favorites = slices.Clone(d.prefs.Favorites)
	return cp
}

// Nickname returns the session's nickname, or "" when unset.
func (d *Descriptor) Nickname() string {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.prefs == nil {
		return ""
	}
	return d.prefs.Nickname
}

// IgnoresName reports whether the session's ignore list carries the
// name (case-insensitive).
func (d *Descriptor) IgnoresName(name string) bool {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.prefs == nil {
		return false
	}
	for _, n := range d.prefs.Ignored {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Touch records one input line of n bytes for idle tracking and stats.
func (d *Descriptor) Touch(n int) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.bytesRecv += n
	d.lastCmd = time.Now()
	d.cmdCount++
}

// Idle returns how long the connection has gone without input.
func (d *Descriptor) Idle() time.Duration {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return time.Since(d.lastCmd)
}

// Stats returns the connection's lifetime traffic counters.
func (d *Descriptor) Stats() (cmds, bytesIn, bytesOut int) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.cmdCount, d.bytesRecv, d.bytesSent
}
