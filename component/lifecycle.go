package component

import (
	"context"

	"github.com/c360/flowkit/errors"
)

// Status represents the operational lifecycle status of a component. It is
// orthogonal to the domain state machine's current state.
type Status int

const (
	// StatusCreated indicates the component was constructed but not started
	StatusCreated Status = iota
	// StatusRunning indicates the component is running
	StatusRunning
	// StatusPaused indicates processing is temporarily suspended
	StatusPaused
	// StatusStopped indicates the component was stopped; stopped components
	// cannot be restarted
	StatusStopped
)

// String returns a string representation of the component status
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Start moves the component from Created to Running. Calling Start in any
// other status fails with a lifecycle error rather than silently no-op'ing.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusCreated:
		c.status = StatusRunning
	case StatusRunning, StatusPaused:
		return errors.WrapLifecycle(errors.ErrAlreadyStarted, c.name, "Start", "status check")
	default:
		return errors.WrapLifecycle(errors.ErrStopped, c.name, "Start", "status check")
	}

	c.logger.InfoContext(ctx, "Component started", "component", c.name)
	c.metrics.setStatus(c.name, c.status)
	return nil
}

// Pause suspends a running component.
func (c *Component) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusRunning {
		return errors.WrapLifecycle(errors.ErrNotRunning, c.name, "Pause", "status check")
	}
	c.status = StatusPaused

	c.logger.InfoContext(ctx, "Component paused", "component", c.name)
	c.metrics.setStatus(c.name, c.status)
	return nil
}

// Resume returns a paused component to Running.
func (c *Component) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusPaused {
		return errors.WrapLifecycle(errors.ErrNotPaused, c.name, "Resume", "status check")
	}
	c.status = StatusRunning

	c.logger.InfoContext(ctx, "Component resumed", "component", c.name)
	c.metrics.setStatus(c.name, c.status)
	return nil
}

// Stop terminates a running or paused component and removes every bus
// subscription the component owns, so teardown never leaks subscriptions.
// Stopped components cannot be restarted.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()

	switch c.status {
	case StatusRunning, StatusPaused:
		c.status = StatusStopped
	case StatusCreated:
		c.mu.Unlock()
		return errors.WrapLifecycle(errors.ErrNotRunning, c.name, "Stop", "status check")
	default:
		c.mu.Unlock()
		return errors.WrapLifecycle(errors.ErrStopped, c.name, "Stop", "status check")
	}
	bus := c.bus
	c.mu.Unlock()

	removed := 0
	if bus != nil {
		removed = bus.UnsubscribeAll(c.name)
	}
	c.logger.InfoContext(ctx, "Component stopped",
		"component", c.name, "subscriptions_removed", removed)
	c.metrics.setStatus(c.name, StatusStopped)
	return nil
}
