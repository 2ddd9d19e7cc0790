package chat

import (
	"fmt"
	"strings"
)

// ReplyShortcut is the reserved inline token that focuses the sender's
// last incoming direct-message sender instead of a channel. Channel
// configurations must not claim it.
const ReplyShortcut = "d"

// Router turns one raw chat line from one sender into zero or more
// explicit deliveries. It resolves inline shortcuts, moves focus, gates
// on permissions (revoking membership when a recipient's grant has
// lapsed), and applies the local-chat suffix and distance rules.
type Router struct {
	Core  *Core
	Dir   Directory
	Sink  Sink
	Names NameSource

	// DefaultChannel receives plain messages from players with no focus.
	DefaultChannel string

	// Ignores filters deliveries between players. Nil means no filtering.
	Ignores IgnorePolicy

	// Relay, when set, observes every channel message once, before
	// per-recipient distance filtering. Bridge, history, and metrics
	// hang here.
	Relay RelayHook

	// OnAutoKick, when set, observes permission-loss membership
	// revocations performed during broadcast.
	OnAutoKick func(p PlayerID, channel string)

	// OnDirect, when set, observes direct-message deliveries.
	OnDirect func(sender, target PlayerID)

	// OnDeliver, when set, observes each per-recipient channel delivery
	// and whether distance fading obscured it.
	OnDeliver func(obscured bool)
}

// NewRouter wires a router over a core and its host collaborators.
func NewRouter(core *Core, dir Directory, sink Sink, names NameSource, defaultChannel string) *Router {
	return &Router{
		Core:           core,
		Dir:            dir,
		Sink:           sink,
		Names:          names,
		DefaultChannel: defaultChannel,
	}
}

// HandleChat routes one raw chat line. Every failure is reported to the
// sender and terminates this one event; nothing is retried.
func (r *Router) HandleChat(sender PlayerID, raw string) {
	if !r.Core.Ready() {
		r.Sink.Notify(sender, "The chat system is still loading. Try again in a moment.")
		return
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}

	if tok, rest, ok := splitShortcut(raw); ok {
		if strings.EqualFold(tok, ReplyShortcut) {
			r.handleReply(sender, rest)
			return
		}
		if ch, found := r.Core.Channels.ByShortcut(tok); found {
			if !r.Core.Permitted(sender, ch) {
				r.Sink.Notify(sender, fmt.Sprintf("You don't have permission for the %s channel.", ch.Name))
				return
			}
			r.Core.SetChannelFocus(sender, ch.Name)
			if rest == "" {
				r.Sink.Notify(sender, fmt.Sprintf("Now talking on %s.", ch.Name))
				return
			}
			r.broadcast(sender, ch, rest)
			return
		}
		// Not a known shortcut: a URL or ordinary prose with a colon.
		// Fall through and route the whole line as message text.
	}

	target, ok := r.Core.FocusOf(sender)
	if !ok || target.Kind == FocusNone {
		r.sendToDefault(sender, raw)
		return
	}
	switch target.Kind {
	case FocusChannel:
		ch, found := r.Core.Channels.ByName(target.Channel)
		if !found {
			r.Core.Focus.clear(sender)
			r.Sink.Notify(sender, fmt.Sprintf("The %s channel no longer exists.", target.Channel))
			return
		}
		r.broadcast(sender, ch, raw)
	case FocusPlayer:
		r.sendDirect(sender, target.Player, raw)
	}
}

// SendDirect routes a direct message without touching the sender's focus
// history first; the /msg command layer calls this after setting focus.
func (r *Router) SendDirect(sender, target PlayerID, body string) {
	r.sendDirect(sender, target, body)
}

// splitShortcut extracts a candidate shortcut token: a single word
// terminated by the first ':' or ';' on the line. Whether the token is
// actually a shortcut is decided against the registry, which keeps
// "https://…" from being eaten as one.
func splitShortcut(raw string) (tok, rest string, ok bool) {
	idx := strings.IndexAny(raw, ":;")
	if idx <= 0 {
		return "", "", false
	}
	tok = raw[:idx]
	if strings.ContainsAny(tok, " \t") {
		return "", "", false
	}
	return tok, strings.TrimSpace(raw[idx+1:]), true
}

// handleReply services the reserved reply shortcut: focus whoever last
// messaged the sender, then optionally send the remainder.
func (r *Router) handleReply(sender PlayerID, rest string) {
	last, ok := r.Core.Focus.LastIncomingSender(sender)
	if !ok {
		r.Sink.Notify(sender, "You have no recent messages to reply to.")
		return
	}
	if !r.Dir.IsOnline(last) {
		r.Sink.Notify(sender, fmt.Sprintf("%s is no longer online.", r.Names.AccountName(last)))
		return
	}
	r.Core.SetDMFocus(sender, last)
	if rest == "" {
		r.Sink.Notify(sender, fmt.Sprintf("Now messaging %s.", r.dmName(last)))
		return
	}
	r.sendDirect(sender, last, rest)
}

// sendToDefault lazily focuses an unfocused sender on the configured
// default channel and routes there.
func (r *Router) sendToDefault(sender PlayerID, body string) {
	ch, ok := r.Core.Channels.ByName(r.DefaultChannel)
	if !ok {
		r.Sink.Notify(sender, "No default channel is configured. Use a channel shortcut to pick one.")
		return
	}
	if !r.Core.SetChannelFocus(sender, ch.Name) {
		r.Sink.Notify(sender, fmt.Sprintf("You don't have permission for the %s channel.", ch.Name))
		return
	}
	r.broadcast(sender, ch, body)
}

// broadcast delivers one message to a channel's online members. Each
// recipient's permission is re-verified at delivery time; a lapsed grant
// silently revokes that member and skips them without disturbing
// delivery to the rest.
func (r *Router) broadcast(sender PlayerID, ch *Channel, body string) {
	if !r.Core.Permitted(sender, ch) {
		r.Sink.Notify(sender, fmt.Sprintf("You don't have permission for the %s channel.", ch.Name))
		return
	}

	senderName := r.channelName(sender, ch)

	var (
		prefix *Text       // never obscured
		sfx    LocalSuffix // local channels only
		flat   *Text       // complete line for flat (and bypass) delivery
	)
	if ch.IsLocal() {
		sfx = ParseLocalSuffix(body)
		switch {
		case sfx.OOC:
			flat = NewText().
				Append("grey", "[OOC] "+senderName+": "+sfx.Text)
		case sfx.Roleplay:
			flat = NewText().
				Append(ch.SeparatorColor, ch.DisplayPrefix+" ").
				Append(ch.NameColor, senderName).
				Append("", " ").
				AppendText(roleplayText(sfx.Text, ch))
		default:
			prefix = NewText().
				Append(ch.SeparatorColor, ch.DisplayPrefix+" ").
				Append(ch.NameColor, senderName)
			if sfx.Verb != "" {
				prefix.Append(ch.SeparatorColor, " "+sfx.Verb)
			}
			prefix.Append("", " ")
			flat = prefix.Clone().Append(ch.MessageColor, sfx.Text)
		}
	} else {
		flat = NewText().
			Append(ch.SeparatorColor, ch.DisplayPrefix+" ").
			Append(ch.NameColor, senderName).
			Append(ch.SeparatorColor, ch.Separator+" ").
			Append(ch.MessageColor, body)
	}

	// The outbound relay sees every channel message exactly once,
	// unfiltered by distance.
	if r.Relay != nil {
		r.Relay(ch.Name, senderName, flat.Plain())
	}

	distanceApplies := ch.IsLocal() && !sfx.Roleplay && !sfx.OOC

	for _, rcpt := range r.Core.MembersOf(ch.Name) {
		if !r.Core.Permitted(rcpt, ch) {
			// Permission lapsed since joining: auto-kick, no delivery.
			if r.Core.AdminRevoke(rcpt, ch.Name) && r.OnAutoKick != nil {
				r.OnAutoKick(rcpt, ch.Name)
			}
			continue
		}
		if rcpt != sender && r.Ignores != nil && r.Ignores.Ignores(rcpt, sender) {
			continue
		}
		if !distanceApplies {
			r.deliver(rcpt, flat, false)
			continue
		}
		vis, masked := ResolveVisibility(sfx.Text, r.Dir.DistanceSquared(sender, rcpt), sfx.Range, false)
		switch vis {
		case Undeliverable:
			continue
		case Delivered:
			r.deliver(rcpt, flat, false)
		case ObscuredV:
			r.deliver(rcpt, prefix.Clone().Append(ch.MessageColor, masked), true)
		}
	}
}

// deliver sends one channel line to one recipient and reports it.
func (r *Router) deliver(rcpt PlayerID, line *Text, obscured bool) {
	r.Sink.SendToPlayer(rcpt, line)
	if r.OnDeliver != nil {
		r.OnDeliver(obscured)
	}
}

// sendDirect delivers a private message: a "you → them" echo to the
// sender and a "them → you" line to the recipient, nobody else. The
// recipient's last-sender link is updated so the reply shortcut works.
func (r *Router) sendDirect(sender, target PlayerID, body string) {
	if !r.Dir.IsOnline(target) {
		r.Sink.Notify(sender, fmt.Sprintf("%s is not online.", r.Names.AccountName(target)))
		return
	}

	echo := NewText().
		Append("magenta", "[msg] ").
		Append("gold", "You -> "+r.dmName(target)).
		Append("magenta", ": ").
		Append("white", body)
	r.Sink.SendToPlayer(sender, echo)

	if r.Ignores != nil && r.Ignores.Ignores(target, sender) {
		// Silent ignore: the sender sees a normal echo, nothing lands.
		return
	}

	view := NewText().
		Append("magenta", "[msg] ").
		Append("gold", r.dmName(sender)+" -> You").
		Append("magenta", ": ").
		Append("white", body)
	r.Sink.SendToPlayer(target, view)
	r.Core.Focus.RecordIncomingDM(target, sender)

	if r.OnDirect != nil {
		r.OnDirect(sender, target)
	}
}

// channelName picks the sender name a channel displays.
func (r *Router) channelName(p PlayerID, ch *Channel) string {
	switch ch.NameStyle {
	case NameNickname:
		if n := r.Names.Nickname(p); n != "" {
			return n
		}
	case NameDisplay:
		if n := r.Names.DisplayName(p); n != "" {
			return n
		}
	}
	return r.Names.AccountName(p)
}

// dmName is the name shown in direct-message lines: nickname when set.
func (r *Router) dmName(p PlayerID) string {
	if n := r.Names.Nickname(p); n != "" {
		return n
	}
	return r.Names.AccountName(p)
}

// roleplayText renders a roleplay body with inline quote-highlighting:
// spoken fragments keep the channel's message color, narration drops to
// the separator color.
func roleplayText(body string, ch *Channel) *Text {
	t := NewText()
	inQuote := false
	start := 0
	flush := func(end int, quoted bool) {
		if end <= start {
			return
		}
		color := ch.SeparatorColor
		if quoted {
			color = ch.MessageColor
		}
		t.Append(color, body[start:end])
	}
	for i, r := range body {
		if r != '"' {
			continue
		}
		if inQuote {
			flush(i+1, true)
			start = i + 1
		} else {
			flush(i, false)
			start = i
		}
		inQuote = !inQuote
	}
	flush(len(body), inQuote)
	return t
}
