package component

import (
	"github.com/c360/flowkit/metric"
)

// componentMetrics wraps the core component metrics; all methods are
// nil-safe so components work without a metrics registry.
type componentMetrics struct {
	core *metric.Metrics
}

func newComponentMetrics(registry *metric.Registry) *componentMetrics {
	if registry == nil {
		return nil
	}
	return &componentMetrics{core: registry.CoreMetrics()}
}

func (m *componentMetrics) recordMessage(name string) {
	if m == nil {
		return
	}
	m.core.MessagesReceived.WithLabelValues(name).Inc()
}

func (m *componentMetrics) recordTransition(name string) {
	if m == nil {
		return
	}
	m.core.Transitions.WithLabelValues(name).Inc()
}

func (m *componentMetrics) recordTransitionError(name, reason string) {
	if m == nil {
		return
	}
	m.core.TransitionErrors.WithLabelValues(name, reason).Inc()
}

func (m *componentMetrics) setStatus(name string, status Status) {
	if m == nil {
		return
	}
	m.core.ComponentStatus.WithLabelValues(name).Set(float64(status))
}
