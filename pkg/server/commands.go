package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/duskhollow/comlink/pkg/chat"
	"github.com/duskhollow/comlink/pkg/prefstore"
)

const helpText = `Commands:
  /focus <channel>         route plain chat to a channel
  /join <channel>          join a channel without focusing it
  /leave <channel>         leave a channel
  /channels                list channels (* joined, ! favorite)
  /who [channel]           list online players, or a channel's members
  /msg <player> <text>     send a private message (and focus that player)
  /reply <text>            reply to whoever last messaged you
  /nick <name>|clear       set or clear your nickname
  /ignore [player]         toggle ignoring a player, or list ignores
  /favorite [channel]      toggle a favorite channel, or list favorites
  /mail                    list mail; /mail read|del <id>; /mail send <player> <text>
  /history [channel] [n]   show recent channel history
  /quit                    disconnect

Chat shortcuts: <shortcut>:<text> switches channel and sends.
The shortcut d replies to your last private message.`

const adminHelpText = `Admin commands:
  /kick <player> <channel>  remove a player from a channel
  /cemit <channel> <text>   emit a server line to a channel
  /pos <player> <x> <y> [z] set a player's world position
  /stats                    per-connection traffic counters
  /reload                   reload channel definitions`

// dispatchCommand handles one slash command. Returns false when the
// connection should close.
func (s *Server) dispatchCommand(d *Descriptor, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "help":
		d.Send(helpText)
		if s.Perms.IsAdmin(d.Player) {
			d.Send(adminHelpText)
		}
	case "quit":
		d.Send("Goodbye.")
		return false
	case "focus":
		s.cmdFocus(d, arg)
	case "join":
		s.cmdJoin(d, arg)
	case "leave":
		s.cmdLeave(d, arg)
	case "channels":
		s.cmdChannels(d)
	case "who":
		s.cmdWho(d, arg)
	case "msg", "m":
		s.cmdMsg(d, arg)
	case "reply", "r":
		s.Router.HandleChat(d.Player, chat.ReplyShortcut+": "+arg)
	case "nick":
		s.cmdNick(d, arg)
	case "ignore":
		s.cmdIgnore(d, arg)
	case "favorite", "fav":
		s.cmdFavorite(d, arg)
	case "mail":
		s.cmdMail(d, arg)
	case "history":
		s.cmdHistory(d, arg)
	case "kick":
		s.cmdKick(d, arg)
	case "cemit":
		s.cmdCemit(d, arg)
	case "pos":
		s.cmdPos(d, arg)
	case "stats":
		s.cmdStats(d)
	case "reload":
		s.cmdReload(d)
	default:
		d.Send(fmt.Sprintf("Unknown command /%s. Type /help.", cmd))
	}
	return true
}

func (s *Server) cmdFocus(d *Descriptor, arg string) {
	if arg == "" {
		if ch, ok := s.Core.FocusedChannel(d.Player); ok {
			d.Send(fmt.Sprintf("You are talking on %s.", ch.Name))
		} else if t, ok := s.Core.FocusOf(d.Player); ok && t.Kind == chat.FocusPlayer {
			d.Send(fmt.Sprintf("You are messaging %s.", t.Player))
		} else {
			d.Send("You have no focus. Plain chat goes to the default channel.")
		}
		return
	}
	ch, ok := s.Core.Channels.ByName(arg)
	if !ok {
		d.Send(fmt.Sprintf("No channel named %s.", arg))
		return
	}
	if !s.Core.SetChannelFocus(d.Player, ch.Name) {
		d.Send(fmt.Sprintf("You don't have permission for the %s channel.", ch.Name))
		return
	}
	d.Send(fmt.Sprintf("Now talking on %s.", ch.Name))
}

func (s *Server) cmdJoin(d *Descriptor, arg string) {
	if arg == "" {
		d.Send("Usage: /join <channel>")
		return
	}
	ch, ok := s.Core.Channels.ByName(arg)
	if !ok {
		d.Send(fmt.Sprintf("No channel named %s.", arg))
		return
	}
	if !s.Core.Join(d.Player, ch.Name) {
		d.Send(fmt.Sprintf("You don't have permission for the %s channel.", ch.Name))
		return
	}
	d.Send(fmt.Sprintf("Joined %s.", ch.Name))
}

func (s *Server) cmdLeave(d *Descriptor, arg string) {
	if arg == "" {
		d.Send("Usage: /leave <channel>")
		return
	}
	ch, ok := s.Core.Channels.ByName(arg)
	if !ok {
		d.Send(fmt.Sprintf("No channel named %s.", arg))
		return
	}
	if ch.AlwaysOn {
		d.Send(fmt.Sprintf("%s is always on; it cannot be left.", ch.Name))
		return
	}
	s.Core.Leave(d.Player, ch.Name)
	d.Send(fmt.Sprintf("Left %s.", ch.Name))
}

func (s *Server) cmdChannels(d *Descriptor) {
	favorites := d.PrefsCopy().Favorites
	var sb strings.Builder
	sb.WriteString("Channels:\n")
	for _, ch := range s.Core.Channels.All() {
		mark := " "
		if s.Core.IsJoined(d.Player, ch.Name) {
			mark = "*"
		}
		fav := " "
		if containsFold(favorites, ch.Name) {
			fav = "!"
		}
		var tags []string
		if ch.Shortcut != "" {
			tags = append(tags, "shortcut "+ch.Shortcut)
		}
		if ch.AlwaysOn {
			tags = append(tags, "always on")
		}
		if ch.Permission != "" {
			tags = append(tags, "restricted")
		}
		if ch.Mature {
			tags = append(tags, "mature")
		}
		if ch.IsLocal() {
			tags = append(tags, "local")
		}
		line := fmt.Sprintf("  %s%s %-16s", mark, fav, ch.Name)
		if len(tags) > 0 {
			line += " (" + strings.Join(tags, ", ") + ")"
		}
		sb.WriteString(line + "\n")
	}
	d.Send(sb.String())
}

func (s *Server) cmdWho(d *Descriptor, arg string) {
	if arg != "" {
		s.cmdWhoChannel(d, arg)
		return
	}
	online := s.Conns.Online()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d player(s) online:\n", len(online)))
	for _, p := range online {
		od, ok := s.Conns.Get(p)
		if !ok {
			continue
		}
		name := od.Account.Name
		if nick := od.Nickname(); nick != "" {
			name = fmt.Sprintf("%s (%s)", nick, od.Account.Name)
		}
		sb.WriteString(fmt.Sprintf("  %-30s idle %s\n", name, od.Idle().Round(time.Second)))
	}
	d.Send(sb.String())
}

func (s *Server) cmdWhoChannel(d *Descriptor, name string) {
	ch, ok := s.Core.Channels.ByName(name)
	if !ok {
		d.Send(fmt.Sprintf("No channel named %s.", name))
		return
	}
	if !s.Core.Permitted(d.Player, ch) {
		d.Send(fmt.Sprintf("You don't have permission for the %s channel.", ch.Name))
		return
	}
	members := s.Core.MembersOf(ch.Name)
	if len(members) == 0 {
		d.Send(fmt.Sprintf("Nobody is on %s.", ch.Name))
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d member(s) on %s:\n", len(members), ch.Name))
	for _, p := range members {
		if od, ok := s.Conns.Get(p); ok && od.Account != nil {
			sb.WriteString("  " + od.Account.Name + "\n")
		}
	}
	d.Send(sb.String())
}

func (s *Server) cmdMsg(d *Descriptor, arg string) {
	name, body, _ := strings.Cut(arg, " ")
	if name == "" {
		d.Send("Usage: /msg <player> <text>")
		return
	}
	target, ok := s.Router.Dir.Resolve(name)
	if !ok {
		d.Send(fmt.Sprintf("%s is not online.", name))
		if s.Conf.MailEnabled && s.Store.AccountExists(name) {
			d.Send(fmt.Sprintf("Use /mail send %s <text> to leave a message.", name))
		}
		return
	}
	s.Core.SetDMFocus(d.Player, target)
	body = strings.TrimSpace(body)
	if body == "" {
		d.Send(fmt.Sprintf("Now messaging %s.", name))
		return
	}
	s.Router.SendDirect(d.Player, target, body)
}

func (s *Server) cmdNick(d *Descriptor, arg string) {
	switch {
	case arg == "":
		if nick := d.Nickname(); nick == "" {
			d.Send("You have no nickname set.")
		} else {
			d.Send(fmt.Sprintf("Your nickname is %s.", nick))
		}
		return
	case strings.EqualFold(arg, "clear"):
		d.WithPrefs(func(p *prefstore.Prefs) { p.Nickname = "" })
		d.Send("Nickname cleared.")
	default:
		if len(arg) > 32 {
			d.Send("Nicknames are at most 32 characters.")
			return
		}
		d.WithPrefs(func(p *prefstore.Prefs) { p.Nickname = arg })
		d.Send(fmt.Sprintf("Nickname set to %s.", arg))
	}
	s.savePrefs(d)
}

func (s *Server) cmdIgnore(d *Descriptor, arg string) {
	if arg == "" {
		if ignored := d.PrefsCopy().Ignored; len(ignored) == 0 {
			d.Send("You are not ignoring anyone.")
		} else {
			d.Send("Ignoring: " + strings.Join(ignored, ", "))
		}
		return
	}
	key := strings.ToLower(arg)
	if key == strings.ToLower(string(d.Player)) {
		d.Send("You cannot ignore yourself.")
		return
	}
	if d.IgnoresName(key) {
		d.WithPrefs(func(p *prefstore.Prefs) {
			if i := indexFold(p.Ignored, key); i >= 0 {
				p.Ignored = append(p.Ignored[:i], p.Ignored[i+1:]...)
			}
		})
		d.Send(fmt.Sprintf("No longer ignoring %s.", key))
	} else {
		if !s.Store.AccountExists(key) {
			d.Send(fmt.Sprintf("No account named %s.", arg))
			return
		}
		d.WithPrefs(func(p *prefstore.Prefs) { p.Ignored = append(p.Ignored, key) })
		d.Send(fmt.Sprintf("Now ignoring %s.", key))
	}
	s.savePrefs(d)
}

func (s *Server) cmdFavorite(d *Descriptor, arg string) {
	if arg == "" {
		if favorites := d.PrefsCopy().Favorites; len(favorites) == 0 {
			d.Send("You have no favorite channels.")
		} else {
			d.Send("Favorites: " + strings.Join(favorites, ", "))
		}
		return
	}
	ch, ok := s.Core.Channels.ByName(arg)
	if !ok {
		d.Send(fmt.Sprintf("No channel named %s.", arg))
		return
	}
	key := strings.ToLower(ch.Name)
	removed := false
	d.WithPrefs(func(p *prefstore.Prefs) {
		if i := indexFold(p.Favorites, key); i >= 0 {
			p.Favorites = append(p.Favorites[:i], p.Favorites[i+1:]...)
			removed = true
		} else {
			p.Favorites = append(p.Favorites, key)
		}
	})
	if removed {
		d.Send(fmt.Sprintf("%s removed from favorites.", ch.Name))
	} else {
		d.Send(fmt.Sprintf("%s added to favorites.", ch.Name))
	}
	s.savePrefs(d)
}

func (s *Server) cmdHistory(d *Descriptor, arg string) {
	if s.History == nil {
		d.Send("History is not enabled on this server.")
		return
	}
	channel := ""
	limit := 20
	if arg != "" {
		first, second, _ := strings.Cut(arg, " ")
		if n, err := strconv.Atoi(first); err == nil {
			limit = n
		} else {
			channel = first
			if n, err := strconv.Atoi(strings.TrimSpace(second)); err == nil {
				limit = n
			}
		}
	}
	if channel == "" {
		if ch, ok := s.Core.FocusedChannel(d.Player); ok {
			channel = ch.Name
		} else {
			channel = s.Conf.DefaultChannel
		}
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	ch, ok := s.Core.Channels.ByName(channel)
	if !ok {
		d.Send(fmt.Sprintf("No channel named %s.", channel))
		return
	}
	if !s.Core.Permitted(d.Player, ch) {
		d.Send(fmt.Sprintf("You don't have permission for the %s channel.", ch.Name))
		return
	}
	rows, err := s.History.Recent(ch.Name, limit)
	if err != nil {
		d.Send("History is unavailable right now.")
		return
	}
	if len(rows) == 0 {
		d.Send(fmt.Sprintf("No history for %s.", ch.Name))
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Last %d line(s) on %s:\n", len(rows), ch.Name))
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", row.At.Format("15:04"), row.Line))
	}
	d.Send(sb.String())
}

func (s *Server) cmdKick(d *Descriptor, arg string) {
	if !s.Perms.IsAdmin(d.Player) {
		d.Send("Permission denied.")
		return
	}
	name, channel, _ := strings.Cut(arg, " ")
	channel = strings.TrimSpace(channel)
	if name == "" || channel == "" {
		d.Send("Usage: /kick <player> <channel>")
		return
	}
	target := chat.PlayerID(strings.ToLower(name))
	if !s.Core.AdminRevoke(target, channel) {
		d.Send(fmt.Sprintf("%s is not a member of %s.", name, channel))
		return
	}
	s.Router.Sink.Notify(target, fmt.Sprintf("You have been removed from %s.", channel))
	d.Send(fmt.Sprintf("Removed %s from %s.", name, channel))
}

func (s *Server) cmdCemit(d *Descriptor, arg string) {
	if !s.Perms.IsAdmin(d.Player) {
		d.Send("Permission denied.")
		return
	}
	channel, text, _ := strings.Cut(arg, " ")
	text = strings.TrimSpace(text)
	if channel == "" || text == "" {
		d.Send("Usage: /cemit <channel> <text>")
		return
	}
	ch, ok := s.Core.Channels.ByName(channel)
	if !ok {
		d.Send(fmt.Sprintf("No channel named %s.", channel))
		return
	}
	line := chat.NewText().
		Append(ch.SeparatorColor, ch.DisplayPrefix+" ").
		Append(ch.MessageColor, text)
	for _, p := range s.Core.MembersOf(ch.Name) {
		s.Router.Sink.SendToPlayer(p, line)
	}
}

func (s *Server) cmdPos(d *Descriptor, arg string) {
	if !s.Perms.IsAdmin(d.Player) {
		d.Send("Permission denied.")
		return
	}
	fields := strings.Fields(arg)
	if len(fields) < 3 || len(fields) > 4 {
		d.Send("Usage: /pos <player> <x> <y> [z]")
		return
	}
	target, ok := s.Router.Dir.Resolve(fields[0])
	if !ok {
		d.Send(fmt.Sprintf("%s is not online.", fields[0]))
		return
	}
	var pos Position
	var err error
	if pos.X, err = strconv.ParseFloat(fields[1], 64); err == nil {
		pos.Y, err = strconv.ParseFloat(fields[2], 64)
	}
	if err == nil && len(fields) == 4 {
		pos.Z, err = strconv.ParseFloat(fields[3], 64)
	}
	if err != nil {
		d.Send("Coordinates must be numbers.")
		return
	}
	s.World.SetPosition(target, pos)
	d.Send(fmt.Sprintf("%s moved to (%g, %g, %g).", target, pos.X, pos.Y, pos.Z))
}

func (s *Server) cmdStats(d *Descriptor) {
	if !s.Perms.IsAdmin(d.Player) {
		d.Send("Permission denied.")
		return
	}
	online := s.Conns.Online()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d connection(s):\n", len(online)))
	for _, p := range online {
		od, ok := s.Conns.Get(p)
		if !ok || od.Account == nil {
			continue
		}
		cmds, in, out := od.Stats()
		sb.WriteString(fmt.Sprintf("  #%-3d %-24s %-21s up %s idle %s cmds %d in %d out %d\n",
			od.ID, od.Account.Name, od.Addr,
			time.Since(od.ConnTime).Round(time.Second), od.Idle().Round(time.Second),
			cmds, in, out))
	}
	d.Send(sb.String())
}

func (s *Server) cmdReload(d *Descriptor) {
	if !s.Perms.IsAdmin(d.Player) {
		d.Send("Permission denied.")
		return
	}
	if err := ReloadChannels(s.Core, s.Conf.ChannelsPath()); err != nil {
		d.Send(fmt.Sprintf("Reload failed: %v", err))
		return
	}
	d.Send(fmt.Sprintf("Reloaded %d channel(s).", s.Core.Channels.Len()))
}

func containsFold(list []string, v string) bool {
	return indexFold(list, v) >= 0
}

func indexFold(list []string, v string) int {
	for i, s := range list {
		if strings.EqualFold(s, v) {
			return i
		}
	}
	return -1
}

// savePrefs writes the descriptor's preference set through to the store.
func (s *Server) savePrefs(d *Descriptor) {
	prefs := d.PrefsCopy()
	if err := s.Store.PutPrefs(string(d.Player), &prefs); err != nil {
		d.Send("Your preferences could not be saved.")
	}
}
