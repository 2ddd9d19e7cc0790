package chat

import "strings"

// Text is an opaque styled-text value: an ordered list of colored runs.
// Routing code only ever measures it, appends to it, and walks its
// message-content runes for obscuring; rendering to ANSI (or anything
// else) happens at the transport edge.
type Text struct {
	spans []span
}

type span struct {
	color string
	text  string
}

// NewText returns an empty styled text builder.
func NewText() *Text {
	return &Text{}
}

// Append adds a colored run. Empty runs are dropped; adjacent runs of the
// same color are merged.
func (t *Text) Append(color, s string) *Text {
	if s == "" {
		return t
	}
	if n := len(t.spans); n > 0 && t.spans[n-1].color == color {
		t.spans[n-1].text += s
		return t
	}
	t.spans = append(t.spans, span{color: color, text: s})
	return t
}

// AppendText splices another Text onto this one.
func (t *Text) AppendText(other *Text) *Text {
	if other == nil {
		return t
	}
	for _, sp := range other.spans {
		t.Append(sp.color, sp.text)
	}
	return t
}

// Clone returns an independent copy.
func (t *Text) Clone() *Text {
	cp := &Text{spans: make([]span, len(t.spans))}
	copy(cp.spans, t.spans)
	return cp
}

// Plain returns the visible text with all styling stripped.
func (t *Text) Plain() string {
	var sb strings.Builder
	for _, sp := range t.spans {
		sb.WriteString(sp.text)
	}
	return sb.String()
}

// ansiCodes maps the color names used in channel configuration to ANSI
// escape sequences. Unknown names render unstyled.
var ansiCodes = map[string]string{
	"black":   "\x1b[30m",
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
	"grey":    "\x1b[90m",
	"gold":    "\x1b[93m",
	"pink":    "\x1b[95m",
	"aqua":    "\x1b[96m",
}

const ansiReset = "\x1b[0m"

// ANSI renders the text for a terminal transport.
func (t *Text) ANSI() string {
	var sb strings.Builder
	styled := false
	for _, sp := range t.spans {
		code := ansiCodes[sp.color]
		if code != "" {
			sb.WriteString(code)
			styled = true
		} else if styled {
			sb.WriteString(ansiReset)
			styled = false
		}
		sb.WriteString(sp.text)
	}
	if styled {
		sb.WriteString(ansiReset)
	}
	return sb.String()
}
