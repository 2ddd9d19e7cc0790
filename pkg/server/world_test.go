package server

import "testing"

func TestWorldDistanceSquared(t *testing.T) {
	w := NewWorld()
	w.SetPosition("alice", Position{X: 0, Y: 0})
	w.SetPosition("bob", Position{X: 3, Y: 4})

	if got := w.DistanceSquared("alice", "bob"); got != 25 {
		t.Errorf("distance squared = %v, want 25", got)
	}
	if got := w.DistanceSquared("bob", "alice"); got != 25 {
		t.Errorf("distance not symmetric: %v", got)
	}
}

func TestWorldDistanceUsesAllAxes(t *testing.T) {
	w := NewWorld()
	w.SetPosition("alice", Position{})
	w.SetPosition("bob", Position{X: 2, Y: 3, Z: 6})

	if got := w.DistanceSquared("alice", "bob"); got != 49 {
		t.Errorf("distance squared = %v, want 49", got)
	}
}

func TestWorldUnknownPlayersAtOrigin(t *testing.T) {
	w := NewWorld()
	w.SetPosition("alice", Position{X: 6, Y: 8})
	if got := w.DistanceSquared("alice", "ghost"); got != 100 {
		t.Errorf("distance to origin = %v, want 100", got)
	}
}

func TestWorldRemove(t *testing.T) {
	w := NewWorld()
	w.SetPosition("alice", Position{X: 5, Y: 5})
	w.Remove("alice")
	if got := w.PositionOf("alice"); got != (Position{}) {
		t.Errorf("position survived removal: %+v", got)
	}
}
