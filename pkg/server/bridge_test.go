package server

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/duskhollow/comlink/pkg/events"
)

type recordingSub struct {
	events []events.Event
}

func (r *recordingSub) Receive(ev events.Event) { r.events = append(r.events, ev) }
func (r *recordingSub) Closed() bool            { return false }

func testBridge(t *testing.T) (*Bridge, *events.Bus, *Conns) {
	t.Helper()
	conf := &Conf{
		ServerName:    "alpha",
		BridgeChannel: "Community",
	}
	bus := events.NewBus()
	conns := NewConns()
	return NewBridge(conf, bus, conns), bus, conns
}

func TestBridgeInboundDelivery(t *testing.T) {
	b, bus, conns := testBridge(t)

	d := testDescriptor(t, 1)
	d.Player = "bob"
	conns.Bind("bob", d)

	sub := &recordingSub{}
	bus.Subscribe("bob", sub)

	// A line this server sent comes back from the hub and must not echo.
	b.deliverInbound(BridgeMsg{Server: "alpha", Sender: "bob", Text: "hello"})
	b.deliverInbound(BridgeMsg{Server: "beta", Sender: "carol", Text: "hi all"})

	if len(sub.events) != 1 {
		t.Fatalf("delivered %d event(s), want 1", len(sub.events))
	}
	ev := sub.events[0]
	if ev.Type != events.EvChannel || ev.Channel != "Community" {
		t.Errorf("event %s on %q", ev.Type, ev.Channel)
	}
	if want := "[Community] carol@beta: hi all"; ev.Text != want {
		t.Errorf("text %q, want %q", ev.Text, want)
	}
}

func TestBridgeCountsTraffic(t *testing.T) {
	b, _, conns := testBridge(t)

	d := testDescriptor(t, 1)
	d.Player = "bob"
	conns.Bind("bob", d)

	b.metrics = &Metrics{
		bridgeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comlink_bridge_messages_total",
		}, []string{"direction"}),
	}

	b.SendOutbound("bob", "hello hub")
	b.deliverInbound(BridgeMsg{Server: "beta", Sender: "carol", Text: "hi"})
	b.deliverInbound(BridgeMsg{Server: "alpha", Sender: "bob", Text: "echo"})

	if got := testutil.ToFloat64(b.metrics.bridgeTotal.WithLabelValues("out")); got != 1 {
		t.Errorf("out counter %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.metrics.bridgeTotal.WithLabelValues("in")); got != 1 {
		t.Errorf("in counter %v, want 1 (own echo must not count)", got)
	}
}

func TestBridgeOutboundQueueDropsOldest(t *testing.T) {
	b, _, _ := testBridge(t)

	for i := 1; i <= 70; i++ {
		b.SendOutbound("bob", fmt.Sprintf("line %d", i))
	}

	if got := len(b.out); got != 64 {
		t.Fatalf("queue holds %d, want 64", got)
	}
	first := <-b.out
	if first.Text != "line 7" {
		t.Errorf("oldest surviving line %q, want %q", first.Text, "line 7")
	}
	if first.Server != "alpha" || first.Sender != "bob" {
		t.Errorf("envelope %s@%s", first.Sender, first.Server)
	}
}
