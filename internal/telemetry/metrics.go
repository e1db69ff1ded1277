package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	BroadcastsTotal  *prometheus.CounterVec
	EventsConsumed   *prometheus.CounterVec
	EventApplyErrors *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corewar_graphql_requests_total",
				Help: "Total number of GraphQL operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corewar_graphql_request_duration_seconds",
				Help:    "GraphQL operation duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		BroadcastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corewar_broadcasts_total",
				Help: "Broadcast attempts by event and status",
			},
			[]string{"event", "status"},
		),
		EventsConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corewar_events_consumed_total",
				Help: "Hill events consumed by the worker by event",
			},
			[]string{"event"},
		),
		EventApplyErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corewar_event_apply_errors_total",
				Help: "Hill events the worker failed to apply by event",
			},
			[]string{"event"},
		),
	}
}

// RecordRequest records a GraphQL operation.
func (m *Metrics) RecordRequest(operation, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordBroadcast records a broadcast attempt.
func (m *Metrics) RecordBroadcast(event string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.BroadcastsTotal.WithLabelValues(event, status).Inc()
}

// RecordEvent records a consumed event and whether applying it failed.
func (m *Metrics) RecordEvent(event string, err error) {
	m.EventsConsumed.WithLabelValues(event).Inc()
	if err != nil {
		m.EventApplyErrors.WithLabelValues(event).Inc()
	}
}
