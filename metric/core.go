package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics for the coordination core
type Metrics struct {
	// Event bus metrics
	EventsPublished  *prometheus.CounterVec
	HandlersInvoked  *prometheus.CounterVec
	HandlerFailures  *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	Subscriptions    prometheus.Gauge

	// State machine metrics
	Transitions      *prometheus.CounterVec
	TransitionErrors *prometheus.CounterVec

	// Component and engine metrics
	MessagesReceived     *prometheus.CounterVec
	ComponentStatus      *prometheus.GaugeVec
	ComponentsRegistered prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowkit",
				Subsystem: "bus",
				Name:      "events_published_total",
				Help:      "Total number of events published",
			},
			[]string{"event", "delivery"},
		),

		HandlersInvoked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowkit",
				Subsystem: "bus",
				Name:      "handlers_invoked_total",
				Help:      "Total number of handler invocations",
			},
			[]string{"event"},
		),

		HandlerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowkit",
				Subsystem: "bus",
				Name:      "handler_failures_total",
				Help:      "Total number of handler failures isolated by the bus",
			},
			[]string{"event", "owner"},
		),

		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "flowkit",
				Subsystem: "bus",
				Name:      "dispatch_duration_seconds",
				Help:      "Event dispatch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event", "delivery"},
		),

		Subscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "flowkit",
				Subsystem: "bus",
				Name:      "subscriptions",
				Help:      "Number of active subscriptions",
			},
		),

		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowkit",
				Subsystem: "statemachine",
				Name:      "transitions_total",
				Help:      "Total number of successful state transitions",
			},
			[]string{"component"},
		),

		TransitionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowkit",
				Subsystem: "statemachine",
				Name:      "transition_errors_total",
				Help:      "Total number of failed fire attempts",
			},
			[]string{"component", "reason"},
		),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowkit",
				Subsystem: "component",
				Name:      "messages_received_total",
				Help:      "Total number of messages handled by components",
			},
			[]string{"component"},
		),

		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flowkit",
				Subsystem: "component",
				Name:      "status",
				Help:      "Component lifecycle status (0=created, 1=running, 2=paused, 3=stopped)",
			},
			[]string{"component"},
		),

		ComponentsRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "flowkit",
				Subsystem: "engine",
				Name:      "components_registered",
				Help:      "Number of components registered with the engine",
			},
		),
	}
}

// collectors returns every core metric for bulk registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EventsPublished,
		m.HandlersInvoked,
		m.HandlerFailures,
		m.DispatchDuration,
		m.Subscriptions,
		m.Transitions,
		m.TransitionErrors,
		m.MessagesReceived,
		m.ComponentStatus,
		m.ComponentsRegistered,
	}
}
