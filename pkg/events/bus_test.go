package events

import (
	"sync"
	"testing"

	"github.com/duskhollow/comlink/pkg/chat"
)

// mockSubscriber implements Subscriber for testing.
type mockSubscriber struct {
	mu       sync.Mutex
	events   []Event
	isClosed bool
}

func (m *mockSubscriber) Receive(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosed
}

func (m *mockSubscriber) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Event, len(m.events))
	copy(cp, m.events)
	return cp
}

func TestBusEmitToPlayer(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}

	player := chat.PlayerID("alice")
	bus.Subscribe(player, sub)

	ev := Event{
		Type:   EvDirect,
		Player: player,
		Source: "bob",
		Text:   "Hello world",
	}
	bus.Emit(ev)

	events := sub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Text != "Hello world" {
		t.Errorf("expected text %q, got %q", "Hello world", events[0].Text)
	}
	if events[0].Type != EvDirect {
		t.Errorf("expected type EvDirect, got %v", events[0].Type)
	}
}

func TestBusGlobalSubscriber(t *testing.T) {
	bus := NewBus()
	global := &mockSubscriber{}
	bus.SubscribeGlobal(global)

	ev := Event{Type: EvChannel, Player: "carol", Channel: "General", Text: "test msg"}
	bus.Emit(ev)

	events := global.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 global event, got %d", len(events))
	}
	if events[0].Channel != "General" {
		t.Errorf("expected channel %q, got %q", "General", events[0].Channel)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}
	player := chat.PlayerID("alice")

	bus.Subscribe(player, sub)
	bus.Unsubscribe(player, sub)

	bus.Emit(Event{Type: EvText, Player: player, Text: "should not arrive"})

	if len(sub.Events()) != 0 {
		t.Error("expected no events after unsubscribe")
	}
}

func TestBusClosedSubscriberSkipped(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{isClosed: true}
	player := chat.PlayerID("alice")

	bus.Subscribe(player, sub)
	bus.Emit(Event{Type: EvText, Player: player, Text: "no delivery"})

	if len(sub.Events()) != 0 {
		t.Error("closed subscriber should not receive events")
	}
}

func TestBusEmitToPlayerOverride(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}
	bus.Subscribe("bob", sub)

	bus.EmitToPlayer("bob", Event{Type: EvNotice, Player: "alice", Text: "rerouted"})

	events := sub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Player != "bob" {
		t.Errorf("recipient not overridden: %v", events[0].Player)
	}
}

func TestBusCleanup(t *testing.T) {
	bus := NewBus()
	active := &mockSubscriber{}
	closed := &mockSubscriber{isClosed: true}
	player := chat.PlayerID("alice")

	bus.Subscribe(player, active)
	bus.Subscribe(player, closed)
	bus.SubscribeGlobal(&mockSubscriber{isClosed: true})

	bus.Cleanup()

	if bus.PlayerSubscribers(player) != 1 {
		t.Errorf("expected 1 active subscriber, got %d", bus.PlayerSubscribers(player))
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EvText, "text"},
		{EvChannel, "channel"},
		{EvDirect, "direct"},
		{EvMail, "mail"},
		{EventType(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
