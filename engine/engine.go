package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/c360/flowkit/component"
	"github.com/c360/flowkit/errors"
	"github.com/c360/flowkit/eventbus"
	"github.com/c360/flowkit/metric"
)

// EventComponentRegistered is published after a component is registered,
// with payload {component}.
const EventComponentRegistered = "engine.component.registered"

// Engine is a thin process-wide registry of components. It owns its
// components exclusively, keyed by unique name, and shares one event bus
// across all of them. The engine routes nothing itself; components
// communicate only through the bus.
type Engine struct {
	mu         sync.RWMutex
	components map[string]*component.Component

	bus     *eventbus.Bus
	logger  *slog.Logger
	metrics *engineMetrics
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithBus sets the shared event bus; the default is a fresh bus.
func WithBus(bus *eventbus.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics wires engine metrics into a metric registry.
func WithMetrics(registry *metric.Registry) Option {
	return func(e *Engine) {
		e.metrics = newEngineMetrics(registry)
	}
}

// New creates an engine with an empty component registry.
func New(opts ...Option) *Engine {
	e := &Engine{
		components: make(map[string]*component.Component),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.bus == nil {
		e.bus = eventbus.New(eventbus.WithLogger(e.logger))
	}
	return e
}

// Bus returns the engine's shared event bus.
func (e *Engine) Bus() *eventbus.Bus {
	return e.bus
}

// Register adds a component to the engine. Duplicate names are an error.
// Components constructed without a bus or logger adopt the engine's, and
// the registration is announced as engine.component.registered.
func (e *Engine) Register(ctx context.Context, c *component.Component) error {
	if c == nil {
		return errors.WrapConfig(
			fmt.Errorf("component is required"),
			"Engine", "Register", "component validation")
	}

	e.mu.Lock()
	if _, exists := e.components[c.Name()]; exists {
		e.mu.Unlock()
		return errors.WrapConfig(
			fmt.Errorf("%w: %q", errors.ErrDuplicateComponent, c.Name()),
			"Engine", "Register", "duplicate name check")
	}
	e.components[c.Name()] = c
	total := len(e.components)
	e.mu.Unlock()

	c.Adopt(e.bus, e.logger)

	e.logger.InfoContext(ctx, "Registered component", "component", c.Name())
	e.metrics.recordRegistration(total)

	// Fire-and-forget announcement; defaults are Sequential delivery with
	// the Continue policy.
	_ = e.bus.Publish(ctx, EventComponentRegistered, eventbus.Payload{
		"component": c.Name(),
	})
	return nil
}

// Deregister removes a component from the engine and drops every bus
// subscription it owns.
func (e *Engine) Deregister(ctx context.Context, name string) error {
	e.mu.Lock()
	_, exists := e.components[name]
	if !exists {
		e.mu.Unlock()
		return errors.WrapConfig(
			fmt.Errorf("%w: %q", errors.ErrComponentNotFound, name),
			"Engine", "Deregister", "component lookup")
	}
	delete(e.components, name)
	total := len(e.components)
	e.mu.Unlock()

	removed := e.bus.UnsubscribeAll(name)
	e.logger.InfoContext(ctx, "Deregistered component",
		"component", name, "subscriptions_removed", removed)
	e.metrics.recordRegistration(total)
	return nil
}

// Get returns the component registered under name.
func (e *Engine) Get(name string) (*component.Component, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.components[name]
	return c, ok
}

// List returns the names of all registered components, sorted.
func (e *Engine) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.components))
	for name := range e.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartAll starts every component still in the Created status, failing on
// the first error.
func (e *Engine) StartAll(ctx context.Context) error {
	for _, c := range e.snapshot() {
		if c.Status() != component.StatusCreated {
			continue
		}
		if err := c.Start(ctx); err != nil {
			return errors.Wrap(err, "Engine", "StartAll", fmt.Sprintf("start component %s", c.Name()))
		}
	}
	return nil
}

// StopAll stops every running or paused component, failing on the first
// error.
func (e *Engine) StopAll(ctx context.Context) error {
	for _, c := range e.snapshot() {
		status := c.Status()
		if status != component.StatusRunning && status != component.StatusPaused {
			continue
		}
		if err := c.Stop(ctx); err != nil {
			return errors.Wrap(err, "Engine", "StopAll", fmt.Sprintf("stop component %s", c.Name()))
		}
	}
	return nil
}

// snapshot copies the component set in name order for lock-free iteration.
func (e *Engine) snapshot() []*component.Component {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.components))
	for name := range e.components {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]*component.Component, 0, len(names))
	for _, name := range names {
		list = append(list, e.components[name])
	}
	return list
}
