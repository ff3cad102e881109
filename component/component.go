package component

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360/flowkit/errors"
	"github.com/c360/flowkit/eventbus"
	"github.com/c360/flowkit/metric"
	"github.com/c360/flowkit/statemachine"
)

// EventMessageReceived is published before each message is evaluated, with
// payload {component, message}.
const EventMessageReceived = "component.message.received"

// Component is the unit the engine manages: it owns a state machine and a
// rule list, holds a reference to a shared event bus, and exposes lifecycle
// and message-handling operations.
type Component struct {
	name    string
	machine *statemachine.Machine

	mu     sync.Mutex // guards status, rules, bus, logger
	status Status
	rules  []Rule
	bus    *eventbus.Bus

	logger  *slog.Logger
	metrics *componentMetrics
}

// Option customizes a Component at construction.
type Option func(*Component)

// WithRules sets the component's initial rule list.
func WithRules(rules ...Rule) Option {
	return func(c *Component) {
		c.rules = rules
	}
}

// WithBus attaches the shared event bus. Components constructed without a
// bus adopt the engine's bus at registration.
func WithBus(bus *eventbus.Bus) Option {
	return func(c *Component) {
		c.bus = bus
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Component) {
		c.logger = logger
	}
}

// WithMetrics wires component metrics into a metric registry.
func WithMetrics(registry *metric.Registry) Option {
	return func(c *Component) {
		c.metrics = newComponentMetrics(registry)
	}
}

// New constructs a component owning the given state machine. The name must
// be unique within the engine the component is registered with.
func New(name string, machine *statemachine.Machine, opts ...Option) (*Component, error) {
	if name == "" {
		return nil, errors.WrapConfig(
			fmt.Errorf("component name is required"),
			"Component", "New", "name validation")
	}
	if machine == nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("state machine is required"),
			"Component", "New", "machine validation")
	}

	c := &Component{
		name:    name,
		machine: machine,
		status:  StatusCreated,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.bus != nil {
		machine.Bind(name, c.bus)
	}
	c.metrics.setStatus(name, c.status)
	return c, nil
}

// Name returns the component's unique name.
func (c *Component) Name() string {
	return c.name
}

// Status returns the operational lifecycle status.
func (c *Component) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// State returns the state machine's current leaf state.
func (c *Component) State() string {
	return c.machine.Current()
}

// Machine exposes the owned state machine to collaborators such as snapshot
// restore. The component remains its exclusive owner.
func (c *Component) Machine() *statemachine.Machine {
	return c.machine
}

// Bus returns the attached event bus, nil before adoption.
func (c *Component) Bus() *eventbus.Bus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bus
}

// Adopt fills in the bus and logger if the component was constructed
// without them. The engine calls this at registration; explicit choices made
// at construction are kept.
func (c *Component) Adopt(bus *eventbus.Bus, logger *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bus == nil && bus != nil {
		c.bus = bus
		c.machine.Bind(c.name, bus)
	}
	if logger != nil {
		c.logger = logger
	}
}

// AddRule appends one rule to the component's rule list.
func (c *Component) AddRule(rule Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, rule)
}

// SetRules replaces the component's rule list.
func (c *Component) SetRules(rules []Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append([]Rule(nil), rules...)
}

// Rules returns a copy of the current rule list.
func (c *Component) Rules() []Rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Rule(nil), c.rules...)
}

// Handle processes one external message: it announces the message, lets the
// rule list permit, deny, or rewrite the trigger, then fires the effective
// trigger on the state machine. The operational status is orthogonal to
// message handling; only the state machine decides whether the trigger is
// legal.
func (c *Component) Handle(ctx context.Context, trigger string, payload eventbus.Payload) (statemachine.Result, error) {
	c.mu.Lock()
	bus := c.bus
	rules := c.rules
	c.mu.Unlock()

	c.metrics.recordMessage(c.name)
	if bus != nil {
		// Fire-and-forget announcement; defaults are Sequential delivery
		// with the Continue policy.
		_ = bus.Publish(ctx, EventMessageReceived, eventbus.Payload{
			"component": c.name,
			"message":   trigger,
		})
	}

	effective := trigger
	for _, rule := range rules {
		if !rule.matches(trigger, payload) {
			continue
		}
		if rule.Deny {
			c.metrics.recordTransitionError(c.name, "denied")
			return statemachine.Result{}, errors.Wrap(
				fmt.Errorf("%w: %q by rule %q", errors.ErrMessageDenied, trigger, rule.Name),
				c.name, "Handle", "rule evaluation")
		}
		if rule.MapTo != "" {
			effective = rule.MapTo
		}
		break
	}

	res, err := c.machine.Fire(ctx, effective, payload)
	if err != nil {
		c.metrics.recordTransitionError(c.name, errors.Classify(err).String())
		return statemachine.Result{}, err
	}

	c.logger.InfoContext(ctx, "Component transitioned",
		"component", c.name, "trigger", effective,
		"from", res.From, "to", res.To)
	c.metrics.recordTransition(c.name)
	return res, nil
}
