package events

import "github.com/duskhollow/comlink/pkg/chat"

// EventType classifies events for transport-specific encoding.
type EventType int

const (
	EvText       EventType = iota // raw text (universal fallback)
	EvChannel                     // channel message
	EvDirect                      // private message
	EvNotice                      // system notice
	EvConnect                     // player connected
	EvDisconnect                  // player disconnected
	EvMail                        // new mail waiting
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvText:
		return "text"
	case EvChannel:
		return "channel"
	case EvDirect:
		return "direct"
	case EvNotice:
		return "notice"
	case EvConnect:
		return "connect"
	case EvDisconnect:
		return "disconnect"
	case EvMail:
		return "mail"
	default:
		return "unknown"
	}
}

// Event is one structured chat event flowing through the bus. Transports
// decide how to encode it: the telnet descriptor renders Styled (falling
// back to Text), the WebSocket bridge and JSON clients use the full
// structured form.
type Event struct {
	Type    EventType
	Player  chat.PlayerID // recipient (Nobody for global-only events)
	Source  chat.PlayerID // who generated the event
	Channel string        // channel name (EvChannel)
	Text    string        // plain-text rendering
	Styled  *chat.Text    // styled rendering, nil when Text is all there is
	Data    map[string]any
}
