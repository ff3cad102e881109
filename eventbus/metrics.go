package eventbus

import (
	"time"

	"github.com/c360/flowkit/metric"
)

// busMetrics wraps the core bus metrics. All methods are nil-safe so the bus
// works without a metrics registry.
type busMetrics struct {
	core *metric.Metrics
}

func newBusMetrics(registry *metric.Registry) *busMetrics {
	if registry == nil {
		return nil
	}
	return &busMetrics{core: registry.CoreMetrics()}
}

func (m *busMetrics) recordPublish(event string, delivery DeliveryMode, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.core.EventsPublished.WithLabelValues(event, delivery.String()).Inc()
	m.core.DispatchDuration.WithLabelValues(event, delivery.String()).Observe(elapsed.Seconds())
}

func (m *busMetrics) recordInvocation(event string) {
	if m == nil {
		return
	}
	m.core.HandlersInvoked.WithLabelValues(event).Inc()
}

func (m *busMetrics) recordFailure(event, owner string) {
	if m == nil {
		return
	}
	m.core.HandlerFailures.WithLabelValues(event, owner).Inc()
}

func (m *busMetrics) setSubscriptions(n int) {
	if m == nil {
		return
	}
	m.core.Subscriptions.Set(float64(n))
}
