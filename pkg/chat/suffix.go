package chat

import "strings"

// Local-chat effective ranges, in world units, keyed by trailing suffix.
const (
	RangeShout   = 100
	RangeExclaim = 75
	RangeSay     = 50
	RangeWhisper = 10
	RangeMutter  = 3
)

// LocalSuffix is the parse of one local-chat message: the effective
// visibility range, the action verb shown after the sender's name, the
// message text with formatting markers stripped, and the roleplay /
// out-of-character flags.
type LocalSuffix struct {
	Range    int
	Verb     string
	Text     string
	Roleplay bool
	OOC      bool
}

// ParseLocalSuffix classifies a message by its trailing characters.
// Two-character markers are checked before one-character markers that end
// the same way, so "!!" is a shout rather than two exclaims.
//
// Punctuation-like suffixes (!, !!, ?) stay in the text because they read
// as natural sentence punctuation; purely syntactic markers (*, $, +, the
// OOC ")) ") are stripped because they carry no meaning as visible text.
func ParseLocalSuffix(raw string) LocalSuffix {
	msg := strings.TrimSpace(raw)

	switch {
	case strings.HasSuffix(msg, "!!"):
		return LocalSuffix{Range: RangeShout, Verb: "shouts:", Text: msg}
	case strings.HasSuffix(msg, "))"):
		return LocalSuffix{Range: RangeSay, Text: trimSuffix(msg, 2), OOC: true}
	case strings.HasSuffix(msg, "!"):
		return LocalSuffix{Range: RangeExclaim, Verb: "exclaims:", Text: msg}
	case strings.HasSuffix(msg, "*"):
		return LocalSuffix{Range: RangeWhisper, Verb: "whispers:", Text: trimSuffix(msg, 1)}
	case strings.HasSuffix(msg, "?"):
		return LocalSuffix{Range: RangeSay, Verb: "asks:", Text: msg}
	case strings.HasSuffix(msg, "$"):
		return LocalSuffix{Range: RangeMutter, Verb: "mutters:", Text: trimSuffix(msg, 1)}
	case strings.HasSuffix(msg, "+"):
		return LocalSuffix{Range: RangeSay, Text: trimSuffix(msg, 1), Roleplay: true}
	default:
		return LocalSuffix{Range: RangeSay, Verb: "says:", Text: msg}
	}
}

// trimSuffix drops n trailing bytes and any whitespace left behind.
func trimSuffix(msg string, n int) string {
	return strings.TrimRight(msg[:len(msg)-n], " \t")
}
