package engine

import "github.com/c360/flowkit/metric"

// engineMetrics is a nil-safe wrapper around the engine's gauge; a nil
// receiver records nothing.
type engineMetrics struct {
	registry *metric.Registry
}

func newEngineMetrics(registry *metric.Registry) *engineMetrics {
	if registry == nil {
		return nil
	}
	return &engineMetrics{registry: registry}
}

func (m *engineMetrics) recordRegistration(total int) {
	if m == nil {
		return
	}
	m.registry.Metrics.ComponentsRegistered.Set(float64(total))
}
