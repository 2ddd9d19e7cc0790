package chat

import (
	"math"
	"math/rand/v2"
	"strings"
)

// Visibility classifies what one recipient gets out of a range-limited
// message: the text unchanged, a progressively obscured variant, or
// nothing at all.
type Visibility int

const (
	Delivered     Visibility = iota // in clear range, text unchanged
	ObscuredV                       // inside the fade band, text partially masked
	Undeliverable                   // beyond the fade band, not sent
)

// MaskRune replaces obscured characters in faded messages.
const MaskRune = '#'

// Fade-band geometry: short-range messages (whispers, mutters) fade over
// a band as wide as their clear range; longer ones fade over half their
// range, capped so shouts do not carry across the whole map.
const (
	fadeNearLimit = 15
	fadeFarCap    = 50.0
)

// fadeDistance returns the width of the fade band for an effective range.
func fadeDistance(effectiveRange int) float64 {
	if effectiveRange <= fadeNearLimit {
		return float64(effectiveRange)
	}
	return math.Min(fadeFarCap, float64(effectiveRange)/2)
}

// ResolveVisibility decides how much of a message body one recipient at
// the given squared distance sees. Only the message-content portion is
// ever passed in; sender-name and verb prefixes are never obscured and
// stay with the caller. Roleplay (and OOC) messages bypass distance
// handling entirely, as does an unlimited range.
//
// Within the fade band each rune is independently replaced by MaskRune
// with probability proportional to how deep into the band the recipient
// stands, so the same broadcast renders differently per recipient.
func ResolveVisibility(body string, distanceSquared float64, effectiveRange int, bypass bool) (Visibility, string) {
	return resolveVisibility(body, distanceSquared, effectiveRange, bypass, rand.Float64)
}

// resolveVisibility is ResolveVisibility with an injectable random
// source.
func resolveVisibility(body string, distanceSquared float64, effectiveRange int, bypass bool, rng func() float64) (Visibility, string) {
	if effectiveRange < 0 || bypass {
		return Delivered, body
	}
	distance := math.Sqrt(distanceSquared)
	if distance <= float64(effectiveRange) {
		return Delivered, body
	}
	fade := fadeDistance(effectiveRange)
	if fade <= 0 || distance > float64(effectiveRange)+fade {
		return Undeliverable, ""
	}

	pct := (distance - float64(effectiveRange)) / fade
	if pct < 0 {
		pct = 0
	} else if pct > 1 {
		pct = 1
	}

	var sb strings.Builder
	sb.Grow(len(body))
	for _, r := range body {
		if rng() < pct {
			sb.WriteRune(MaskRune)
		} else {
			sb.WriteRune(r)
		}
	}
	return ObscuredV, sb.String()
}
