package server

import (
	"sync"

	"github.com/duskhollow/comlink/pkg/chat"
)

// Position is a point in the shared world space.
type Position struct {
	X, Y, Z float64
}

// World tracks each online player's position. The game simulation (or an
// admin command) writes positions; local-chat range checks read them.
// Players with no recorded position stand at the origin.
type World struct {
	mu  sync.RWMutex
	pos map[chat.PlayerID]Position
}

// NewWorld creates an empty position tracker.
func NewWorld() *World {
	return &World{pos: make(map[chat.PlayerID]Position)}
}

// SetPosition records a player's position.
func (w *World) SetPosition(p chat.PlayerID, pos Position) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pos[p] = pos
}

// PositionOf returns a player's position.
func (w *World) PositionOf(p chat.PlayerID) Position {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pos[p]
}

// Remove drops a player's position on disconnect.
func (w *World) Remove(p chat.PlayerID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pos, p)
}

// DistanceSquared returns the squared distance between two players.
func (w *World) DistanceSquared(a, b chat.PlayerID) float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	pa, pb := w.pos[a], w.pos[b]
	dx, dy, dz := pa.X-pb.X, pa.Y-pb.Y, pa.Z-pb.Z
	return dx*dx + dy*dy + dz*dz
}
