// Package metrics holds the relay's prometheus collectors.
// A nil *Relay is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Relay struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	failures    *prometheus.CounterVec
	evictions   prometheus.Counter
	connections prometheus.Gauge
	rooms       prometheus.Gauge
}

// New builds the collectors on a dedicated registry so several instances can live in one process.
func New() *Relay {
	m := &Relay{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_total",
			Help: "Inbound events accepted by the router.",
		}, []string{"event"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_rejected_total",
			Help: "Inbound events dropped before routing.",
		}, []string{"reason"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Outbound frames enqueued to a connection.",
		}, []string{"event"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_delivery_failures_total",
			Help: "Outbound frames that could not be enqueued.",
		}, []string{"reason"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_evictions_total",
			Help: "Connections disconnected for back-pressure.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connections",
			Help: "Live connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_rooms",
			Help: "Rooms with at least one member.",
		}),
	}
	m.registry.MustRegister(
		m.events, m.rejected, m.deliveries, m.failures, m.evictions, m.connections, m.rooms,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Relay) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests and embedding.
func (m *Relay) Gatherer() prometheus.Gatherer { return m.registry }

func (m *Relay) EventAccepted(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}

func (m *Relay) EventRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Relay) Delivered(event string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.deliveries.WithLabelValues(event).Add(float64(n))
}

func (m *Relay) DeliveryFailed(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.failures.WithLabelValues(reason).Add(float64(n))
}

func (m *Relay) Evicted() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *Relay) SetSizes(conns, rooms int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(conns))
	m.rooms.Set(float64(rooms))
}
