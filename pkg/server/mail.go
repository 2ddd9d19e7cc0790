package server

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/duskhollow/comlink/pkg/chat"
	"github.com/duskhollow/comlink/pkg/events"
	"github.com/duskhollow/comlink/pkg/prefstore"
)

// Mail manages offline messages on top of the preference store: sending,
// listing, and expiring old messages.
type Mail struct {
	store          *prefstore.Store
	expirationDays int
}

// NewMail creates the mail manager. expirationDays of 0 keeps mail
// forever.
func NewMail(store *prefstore.Store, expirationDays int) *Mail {
	return &Mail{store: store, expirationDays: expirationDays}
}

// Send stores a message for a recipient account.
func (m *Mail) Send(from, to, body string) (uint64, error) {
	return m.store.AppendMail(to, prefstore.Message{
		From:   from,
		Body:   body,
		SentAt: time.Now(),
	})
}

// expired reports whether a message is past the expiration window.
func (m *Mail) expired(msg prefstore.Message) bool {
	if m.expirationDays <= 0 {
		return false
	}
	return time.Since(msg.SentAt) > time.Duration(m.expirationDays)*24*time.Hour
}

// inbox returns a recipient's live messages, lazily deleting expired
// ones.
func (m *Mail) inbox(recipient string) ([]prefstore.Message, error) {
	all, err := m.store.MailFor(recipient)
	if err != nil {
		return nil, err
	}
	live := all[:0]
	for _, msg := range all {
		if m.expired(msg) {
			if err := m.store.DeleteMail(recipient, msg.ID); err != nil {
				log.Printf("mail: expire %d for %s: %v", msg.ID, recipient, err)
			}
			continue
		}
		live = append(live, msg)
	}
	return live, nil
}

// cmdMail handles the /mail command tree.
func (s *Server) cmdMail(d *Descriptor, arg string) {
	if !s.Conf.MailEnabled {
		d.Send("Mail is not enabled on this server.")
		return
	}

	sub, rest, _ := strings.Cut(arg, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(sub) {
	case "":
		s.mailList(d)
	case "read":
		s.mailRead(d, rest)
	case "del", "delete":
		s.mailDelete(d, rest)
	case "clear":
		s.mailSetCleared(d, rest, true)
	case "unclear":
		s.mailSetCleared(d, rest, false)
	case "safe":
		s.mailSetSafe(d, rest)
	case "purge":
		s.mailPurge(d)
	case "send":
		s.mailSend(d, rest)
	default:
		d.Send("Usage: /mail | /mail read|del|clear|unclear|safe <id> | /mail purge | /mail send <player> <text>")
	}
}

func (s *Server) mailList(d *Descriptor) {
	box, err := s.Mail.inbox(string(d.Player))
	if err != nil {
		d.Send("Mail is unavailable right now.")
		return
	}
	if len(box) == 0 {
		d.Send("Your mailbox is empty.")
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d message(s):\n", len(box)))
	for _, msg := range box {
		mark := "N"
		switch {
		case msg.Cleared:
			mark = "C"
		case msg.Safe:
			mark = "S"
		case msg.Read:
			mark = " "
		}
		preview := msg.Body
		if len(preview) > 40 {
			preview = preview[:40] + "..."
		}
		sb.WriteString(fmt.Sprintf("  %s %3d  %-16s %s  %s\n",
			mark, msg.ID, msg.From, msg.SentAt.Format("Jan 02"), preview))
	}
	d.Send(sb.String())
}

func (s *Server) mailRead(d *Descriptor, arg string) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		d.Send("Usage: /mail read <id>")
		return
	}
	box, err := s.Mail.inbox(string(d.Player))
	if err != nil {
		d.Send("Mail is unavailable right now.")
		return
	}
	for _, msg := range box {
		if msg.ID != id {
			continue
		}
		d.Send(fmt.Sprintf("From %s on %s:\n%s",
			msg.From, msg.SentAt.Format("Jan 02 15:04"), msg.Body))
		if err := s.Store.MarkMailRead(string(d.Player), id); err != nil {
			log.Printf("mail: mark read %d for %s: %v", id, d.Player, err)
		}
		return
	}
	d.Send(fmt.Sprintf("No message with id %d.", id))
}

func (s *Server) mailDelete(d *Descriptor, arg string) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		d.Send("Usage: /mail del <id>")
		return
	}
	if err := s.Store.DeleteMail(string(d.Player), id); err != nil {
		d.Send(fmt.Sprintf("No message with id %d.", id))
		return
	}
	d.Send(fmt.Sprintf("Message %d deleted.", id))
}

func (s *Server) mailSetCleared(d *Descriptor, arg string, cleared bool) {
	verb := "clear"
	if !cleared {
		verb = "unclear"
	}
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		d.Send(fmt.Sprintf("Usage: /mail %s <id>", verb))
		return
	}
	switch err := s.Store.SetMailCleared(string(d.Player), id, cleared); {
	case errors.Is(err, prefstore.ErrMailSafe):
		d.Send(fmt.Sprintf("Message %d is marked safe. Unset safe first.", id))
	case err != nil:
		d.Send(fmt.Sprintf("No message with id %d.", id))
	case cleared:
		d.Send(fmt.Sprintf("Message %d cleared. /mail purge removes it.", id))
	default:
		d.Send(fmt.Sprintf("Message %d kept.", id))
	}
}

func (s *Server) mailSetSafe(d *Descriptor, arg string) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		d.Send("Usage: /mail safe <id>")
		return
	}
	if err := s.Store.SetMailSafe(string(d.Player), id, true); err != nil {
		d.Send(fmt.Sprintf("No message with id %d.", id))
		return
	}
	d.Send(fmt.Sprintf("Message %d marked safe.", id))
}

func (s *Server) mailPurge(d *Descriptor) {
	n, err := s.Store.PurgeMail(string(d.Player))
	if err != nil {
		d.Send("Mail is unavailable right now.")
		return
	}
	d.Send(fmt.Sprintf("%d message(s) purged.", n))
}

func (s *Server) mailSend(d *Descriptor, arg string) {
	name, body, _ := strings.Cut(arg, " ")
	body = strings.TrimSpace(body)
	if name == "" || body == "" {
		d.Send("Usage: /mail send <player> <text>")
		return
	}
	target, err := s.Store.GetAccount(name)
	if err != nil {
		d.Send(fmt.Sprintf("No account named %s.", name))
		return
	}
	if _, err := s.Mail.Send(d.Account.Name, target.Name, body); err != nil {
		log.Printf("mail: send %s -> %s: %v", d.Player, target.Name, err)
		d.Send("Your message could not be stored.")
		return
	}
	d.Send(fmt.Sprintf("Mail sent to %s.", target.Name))

	// Nudge the recipient if they are online right now.
	recipient := strings.ToLower(target.Name)
	s.Bus.Emit(events.Event{
		Type:   events.EvMail,
		Player: chat.PlayerID(recipient),
		Source: d.Player,
		Text:   fmt.Sprintf("New mail from %s. Type /mail to read.", d.Account.Name),
	})
}
