// Package obs provides the engine's Prometheus instrumentation and
// correlation-id generation.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters and histograms the engine updates as it
// applies commands and events.
type Metrics struct {
	CommandsTotal      *prometheus.CounterVec
	EventsTotal        *prometheus.CounterVec
	EventDropsTotal     *prometheus.CounterVec
	PersistenceRetries  prometheus.Counter
	PersistenceFailures prometheus.Counter
	CommandTimeouts     prometheus.Counter
	CommandQueueDepth   prometheus.Gauge
	EventQueueDepth     prometheus.Gauge
	CommandLatency      prometheus.Histogram
}

// NewMetrics registers and returns a fresh set of engine metrics against
// the given registerer. cmd/execd passes its own prometheus.NewRegistry();
// tests do the same to avoid collisions between parallel test runs
// registering the same collector names.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "execd_commands_total",
			Help: "Total strategy commands ingressed, partitioned by kind and outcome",
		}, []string{"kind", "outcome"}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "execd_events_total",
			Help: "Total venue events applied, partitioned by kind",
		}, []string{"kind"}),
		EventDropsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "execd_event_drops_total",
			Help: "Events dropped without mutating state, partitioned by reason",
		}, []string{"reason"}),
		PersistenceRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "execd_persistence_retries_total",
			Help: "Persistence write retry attempts beyond the first",
		}),
		PersistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "execd_persistence_failures_total",
			Help: "Persistence writes that exhausted their retry budget",
		}),
		CommandTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "execd_command_timeouts_total",
			Help: "Outgoing commands that timed out waiting for a venue acknowledgement",
		}),
		CommandQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "execd_command_queue_depth",
			Help: "Current depth of the command ingress queue",
		}),
		EventQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "execd_event_queue_depth",
			Help: "Current depth of the venue event ingress queue",
		}),
		CommandLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "execd_command_latency_seconds",
			Help:    "Time from command ingress to venue forward",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
