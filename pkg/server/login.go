package server

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/duskhollow/comlink/pkg/chat"
	"github.com/duskhollow/comlink/pkg/events"
	"github.com/duskhollow/comlink/pkg/prefstore"
)

// handleLogin processes one pre-login line. Returns false when the
// connection should close.
func (s *Server) handleLogin(d *Descriptor, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch strings.ToLower(fields[0]) {
	case "quit":
		d.Send("Goodbye.")
		return false

	case "connect", "co", "con":
		if len(fields) < 3 {
			d.Send("Usage: connect <name> <password>")
			return true
		}
		return s.loginConnect(d, fields[1], strings.Join(fields[2:], " "))

	case "create", "cr":
		if !s.Conf.AllowCreate {
			d.Send("Account creation is disabled on this server.")
			return true
		}
		if len(fields) < 3 {
			d.Send("Usage: create <name> <password>")
			return true
		}
		return s.loginCreate(d, fields[1], strings.Join(fields[2:], " "))

	default:
		d.Send("Log in first: connect <name> <password>")
		return true
	}
}

// loginConnect authenticates an existing account.
func (s *Server) loginConnect(d *Descriptor, name, password string) bool {
	a, err := s.Store.GetAccount(name)
	if err != nil {
		if !errors.Is(err, prefstore.ErrNotFound) {
			log.Printf("login: lookup %s: %v", name, err)
		}
		return s.loginFailed(d, "Unknown account or wrong password.")
	}
	if bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) != nil {
		return s.loginFailed(d, "Unknown account or wrong password.")
	}
	s.bindSession(d, a)
	return true
}

// loginCreate makes a new account and logs it in.
func (s *Server) loginCreate(d *Descriptor, name, password string) bool {
	if !validAccountName(name) {
		d.Send("Account names are 2-24 letters, digits, or underscores.")
		return true
	}
	if len(password) < 4 {
		d.Send("Pick a password of at least 4 characters.")
		return true
	}
	if s.Store.AccountExists(name) {
		d.Send("That name is taken.")
		return true
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("login: hash: %v", err)
		d.Send("Account creation failed. Try again.")
		return true
	}
	a := &prefstore.Account{
		Name:         name,
		PasswordHash: hash,
		Level:        1,
		CreatedAt:    time.Now(),
	}
	if err := s.Store.PutAccount(a); err != nil {
		log.Printf("login: create %s: %v", name, err)
		d.Send("Account creation failed. Try again.")
		return true
	}
	log.Printf("login: created account %s from %s", a.Name, d.Addr)
	s.bindSession(d, a)
	return true
}

// loginFailed counts down the retry budget.
func (s *Server) loginFailed(d *Descriptor, msg string) bool {
	d.Retries--
	d.Send(msg)
	if d.Retries <= 0 {
		d.Send("Too many attempts.")
		return false
	}
	return true
}

// bindSession promotes a descriptor to a logged-in session: bind the
// player slot (booting any prior connection for the account), load
// preferences, subscribe to the bus, and announce.
func (s *Server) bindSession(d *Descriptor, a *prefstore.Account) {
	player := chat.PlayerID(strings.ToLower(a.Name))

	prefs, err := s.Store.GetPrefs(a.Name)
	if err != nil {
		log.Printf("login: prefs %s: %v", a.Name, err)
		prefs = &prefstore.Prefs{}
	}

	d.State = ConnConnected
	d.Player = player
	d.Account = a
	d.SetPrefs(prefs)

	if prior := s.Conns.Bind(player, d); prior != nil && prior != d {
		prior.Send("*** Your account connected from elsewhere. ***")
		s.Bus.Unsubscribe(player, prior)
		prior.Close()
	}
	s.Bus.Subscribe(player, d)

	s.Store.TouchLastSeen(a.Name, time.Now())
	log.Printf("login: %s connected from %s", a.Name, d.Addr)

	d.Send(fmt.Sprintf("Welcome, %s. Type /help for commands.", a.Name))
	if unread, err := s.Store.UnreadMail(a.Name); err == nil && unread > 0 {
		d.Send(fmt.Sprintf("You have %d unread mail message(s). Type /mail to read.", unread))
	}

	s.Bus.Emit(events.Event{Type: events.EvConnect, Source: player})
	if s.Metrics != nil {
		s.Metrics.Connected()
	}
}

// validAccountName enforces the account naming rules.
func validAccountName(name string) bool {
	if len(name) < 2 || len(name) > 24 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
