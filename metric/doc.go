// Package metric provides centralized Prometheus metrics for FlowKit.
//
// A Registry owns a private prometheus.Registry pre-populated with the core
// platform metrics (bus dispatch, state transitions, component lifecycle) and
// Go runtime collectors. Collaborators register their own collectors through
// the Registrar interface; the core never depends on collaborator metrics.
//
// Every consumer of a Registry treats it as optional: a nil Registry disables
// metrics without any behavioral change.
//
//	registry := metric.NewRegistry()
//	bus := eventbus.New(eventbus.WithMetrics(registry))
//	http.Handle("/metrics", registry.Handler())
package metric
