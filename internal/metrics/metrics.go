package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jobpulse/notify/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	PushDelivered   *prometheus.CounterVec
	PushFailed      *prometheus.CounterVec
	DispatchLatency *prometheus.HistogramVec
	ConnectedConns  prometheus.Gauge
	RegisteredUsers prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PushDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "push_delivered_total",
			Help: "Total number of notifications delivered over a live push connection.",
		}, []string{"type"}),

		PushFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "push_failed_total",
			Help: "Total number of push sends that failed on a stale connection.",
		}, []string{"type"}),

		DispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "push_dispatch_seconds",
			Help:    "Per-connection push latency from dispatch to transport write.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),

		ConnectedConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connected_clients",
			Help: "Current number of live push connections.",
		}),
		RegisteredUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_registered_users",
			Help: "Current number of distinct users with at least one live connection.",
		}),
	}

	reg.MustRegister(
		m.PushDelivered,
		m.PushFailed,
		m.DispatchLatency,
		m.ConnectedConns,
		m.RegisteredUsers,
	)

	return m
}

// DispatchHooks returns the metric callback functions expected by
// dispatch.MetricHooks. Centralises the prometheus observation calls so
// the dispatcher stays metrics-agnostic.
func (m *Metrics) DispatchHooks() (
	onDelivered func(domain.Type, time.Duration),
	onFailed func(domain.Type),
) {
	onDelivered = func(t domain.Type, latency time.Duration) {
		m.PushDelivered.WithLabelValues(string(t)).Inc()
		m.DispatchLatency.WithLabelValues(string(t)).Observe(latency.Seconds())
	}
	onFailed = func(t domain.Type) {
		m.PushFailed.WithLabelValues(string(t)).Inc()
	}
	return
}

// SetRegistryStats updates the connection gauges from a registry snapshot.
func (m *Metrics) SetRegistryStats(users, conns int) {
	m.RegisteredUsers.Set(float64(users))
	m.ConnectedConns.Set(float64(conns))
}
