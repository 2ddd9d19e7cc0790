package server

import (
	"fmt"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metric descriptors for the chat server.
type Metrics struct {
	server    *Server
	startTime time.Time

	playersConnected   prometheus.Gauge
	connectionsTotal   prometheus.Counter
	messagesTotal      *prometheus.CounterVec
	deliveriesTotal    *prometheus.CounterVec
	autoKicksTotal     prometheus.Counter
	bridgeTotal        *prometheus.CounterVec
	channelsConfigured prometheus.Gauge
	uptimeSeconds      prometheus.Gauge
	memoryHeapBytes    prometheus.Gauge
	goroutines         prometheus.Gauge
}

// NewMetrics creates and registers Prometheus metrics for the server.
func NewMetrics(server *Server, startTime time.Time) *Metrics {
	m := &Metrics{
		server:    server,
		startTime: startTime,
		playersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "comlink_players_connected",
			Help: "Number of currently connected players.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "comlink_connections_total",
			Help: "Total logins since server start.",
		}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comlink_messages_routed_total",
			Help: "Messages routed since server start, by kind.",
		}, []string{"kind"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comlink_deliveries_total",
			Help: "Per-recipient channel deliveries, by result.",
		}, []string{"result"}),
		autoKicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "comlink_autokicks_total",
			Help: "Memberships revoked at delivery time for lapsed permissions.",
		}),
		bridgeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comlink_bridge_messages_total",
			Help: "Community bridge messages, by direction.",
		}, []string{"direction"}),
		channelsConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "comlink_channels_configured",
			Help: "Number of configured channels.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "comlink_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "comlink_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "comlink_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	prometheus.MustRegister(
		m.playersConnected,
		m.connectionsTotal,
		m.messagesTotal,
		m.deliveriesTotal,
		m.autoKicksTotal,
		m.bridgeTotal,
		m.channelsConfigured,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
	)

	return m
}

// Connected counts a login.
func (m *Metrics) Connected() {
	m.connectionsTotal.Inc()
}

// Disconnected is a hook for symmetry; the connected-players gauge is
// refreshed on scrape.
func (m *Metrics) Disconnected() {}

// MessageRouted counts one routed message of the given kind.
func (m *Metrics) MessageRouted(kind string) {
	m.messagesTotal.WithLabelValues(kind).Inc()
}

// Delivered counts one per-recipient channel delivery.
func (m *Metrics) Delivered(obscured bool) {
	result := "clear"
	if obscured {
		result = "obscured"
	}
	m.deliveriesTotal.WithLabelValues(result).Inc()
}

// AutoKicked counts one delivery-time membership revocation.
func (m *Metrics) AutoKicked() {
	m.autoKicksTotal.Inc()
}

// BridgeMessage counts one bridge message ("in" or "out").
func (m *Metrics) BridgeMessage(direction string) {
	m.bridgeTotal.WithLabelValues(direction).Inc()
}

// Update refreshes all gauge metrics from current server state.
func (m *Metrics) Update() {
	m.playersConnected.Set(float64(m.server.Conns.Count()))
	m.channelsConfigured.Set(float64(m.server.Core.Channels.Len()))
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		promhttp.Handler().ServeHTTP(w, r)
	})
}

// Serve exposes /metrics on the given port and blocks.
func (m *Metrics) Serve(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	addr := fmt.Sprintf(":%d", port)
	log.Printf("metrics: serving on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics: %v", err)
	}
}
