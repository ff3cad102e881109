package statemachine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowkit/errors"
	"github.com/c360/flowkit/eventbus"
)

// flatRegistry builds Idle -> Processing -> Complete.
func flatRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.Register(&State{Name: "Idle", Transitions: []Transition{
		{Trigger: "start_job", Target: "Processing"},
	}}))
	require.NoError(t, registry.Register(&State{Name: "Processing", Transitions: []Transition{
		{Trigger: "complete", Target: "Complete"},
		{Trigger: "fail", Target: "Idle"},
	}}))
	require.NoError(t, registry.Register(&State{Name: "Complete"}))
	return registry
}

func TestFireSimpleTransition(t *testing.T) {
	machine, err := NewMachine(flatRegistry(t), "Idle")
	require.NoError(t, err)

	res, err := machine.Fire(context.Background(), "start_job", nil)
	require.NoError(t, err)
	assert.Equal(t, Result{From: "Idle", To: "Processing"}, res)
	assert.Equal(t, "Processing", machine.Current())
}

func TestFireUnhandledTrigger(t *testing.T) {
	machine, err := NewMachine(flatRegistry(t), "Idle")
	require.NoError(t, err)

	_, err = machine.Fire(context.Background(), "no_such_trigger", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnhandledTrigger)
	assert.Equal(t, "Idle", machine.Current(), "failed fire leaves state unchanged")
}

func TestFireGuard(t *testing.T) {
	newGuarded := func(guard Guard) *Machine {
		registry := NewRegistry()
		require.NoError(t, registry.Register(&State{Name: "Idle", Transitions: []Transition{
			{Trigger: "go", Target: "Active", Guard: guard},
		}}))
		require.NoError(t, registry.Register(&State{Name: "Active"}))
		machine, err := NewMachine(registry, "Idle")
		require.NoError(t, err)
		return machine
	}

	t.Run("guard pass", func(t *testing.T) {
		machine := newGuarded(func(p eventbus.Payload) (bool, error) {
			return p["allowed"] == true, nil
		})
		_, err := machine.Fire(context.Background(), "go", eventbus.Payload{"allowed": true})
		require.NoError(t, err)
		assert.Equal(t, "Active", machine.Current())
	})

	t.Run("guard rejected", func(t *testing.T) {
		machine := newGuarded(func(p eventbus.Payload) (bool, error) {
			return false, nil
		})
		_, err := machine.Fire(context.Background(), "go", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrGuardRejected)
		assert.Equal(t, "Idle", machine.Current())
	})

	t.Run("guard evaluation failure is distinct", func(t *testing.T) {
		machine := newGuarded(func(p eventbus.Payload) (bool, error) {
			return false, fmt.Errorf("lookup service down")
		})
		_, err := machine.Fire(context.Background(), "go", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrGuardFailed)
		assert.NotErrorIs(t, err, errors.ErrGuardRejected)
		assert.Contains(t, err.Error(), "lookup service down")
		assert.Equal(t, "Idle", machine.Current())
	})

	t.Run("guard panic becomes evaluation failure", func(t *testing.T) {
		machine := newGuarded(func(p eventbus.Payload) (bool, error) {
			panic("bad guard")
		})
		_, err := machine.Fire(context.Background(), "go", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrGuardFailed)
		assert.Equal(t, "Idle", machine.Current())
	})
}

// nestedRegistry builds:
//
//	Off
//	Running (history, default Loading)
//	├── Loading
//	├── Ready
//	└── Working
func nestedRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.Register(&State{Name: "Off", Transitions: []Transition{
		{Trigger: "power_on", Target: "Running"},
	}}))
	require.NoError(t, registry.Register(&State{
		Name:         "Running",
		History:      true,
		DefaultChild: "Loading",
		Transitions: []Transition{
			{Trigger: "power_off", Target: "Off"},
		},
	}))
	require.NoError(t, registry.Register(&State{Name: "Loading", Parent: "Running", Transitions: []Transition{
		{Trigger: "loaded", Target: "Ready"},
	}}))
	require.NoError(t, registry.Register(&State{Name: "Ready", Parent: "Running", Transitions: []Transition{
		{Trigger: "work", Target: "Working"},
	}}))
	require.NoError(t, registry.Register(&State{Name: "Working", Parent: "Running"}))
	return registry
}

func TestCompositeInitialResolvesToLeaf(t *testing.T) {
	machine, err := NewMachine(nestedRegistry(t), "Running")
	require.NoError(t, err)
	assert.Equal(t, "Loading", machine.Current(), "composite initial resolves through default child")
}

func TestTriggerBubblesToAncestor(t *testing.T) {
	machine, err := NewMachine(nestedRegistry(t), "Running")
	require.NoError(t, err)

	// power_off is declared on Running, not on the current leaf Loading.
	res, err := machine.Fire(context.Background(), "power_off", nil)
	require.NoError(t, err)
	assert.Equal(t, Result{From: "Loading", To: "Off"}, res)
	assert.Equal(t, "Off", machine.Current())
}

func TestHistoryResumesLastActiveChild(t *testing.T) {
	machine, err := NewMachine(nestedRegistry(t), "Off")
	require.NoError(t, err)

	// Enter Running; first entry uses the default child.
	_, err = machine.Fire(context.Background(), "power_on", nil)
	require.NoError(t, err)
	assert.Equal(t, "Loading", machine.Current())

	// Advance to Ready, then exit the composite.
	_, err = machine.Fire(context.Background(), "loaded", nil)
	require.NoError(t, err)
	_, err = machine.Fire(context.Background(), "power_off", nil)
	require.NoError(t, err)
	assert.Equal(t, "Off", machine.Current())

	// Re-entering the composite (not a specific child) resumes Ready,
	// not the default child Loading.
	res, err := machine.Fire(context.Background(), "power_on", nil)
	require.NoError(t, err)
	assert.Equal(t, "Ready", res.To)
	assert.Equal(t, "Ready", machine.Current())
}

func TestCompositeWithoutDefaultOrHistoryFails(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&State{Name: "Off", Transitions: []Transition{
		{Trigger: "enter", Target: "Bare"},
	}}))
	require.NoError(t, registry.Register(&State{Name: "Bare"})) // no default child declared
	require.NoError(t, registry.Register(&State{Name: "Inner", Parent: "Bare"}))

	machine, err := NewMachine(registry, "Off")
	require.NoError(t, err)

	_, err = machine.Fire(context.Background(), "enter", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoDefaultChild)
	assert.Equal(t, "Off", machine.Current(), "unresolvable target leaves state unchanged")
}

func TestEntryExitOrdering(t *testing.T) {
	var calls []string
	hook := func(name string) Action {
		return func(context.Context, eventbus.Payload) error {
			calls = append(calls, name)
			return nil
		}
	}

	registry := NewRegistry()
	require.NoError(t, registry.Register(&State{
		Name: "A", DefaultChild: "A1", OnEntry: hook("enter A"), OnExit: hook("exit A"),
	}))
	require.NoError(t, registry.Register(&State{
		Name: "A1", Parent: "A", OnEntry: hook("enter A1"), OnExit: hook("exit A1"),
		Transitions: []Transition{
			{Trigger: "cross", Target: "B1", Action: hook("action")},
		},
	}))
	require.NoError(t, registry.Register(&State{
		Name: "B", DefaultChild: "B1", OnEntry: hook("enter B"), OnExit: hook("exit B"),
	}))
	require.NoError(t, registry.Register(&State{
		Name: "B1", Parent: "B", OnEntry: hook("enter B1"), OnExit: hook("exit B1"),
	}))

	machine, err := NewMachine(registry, "A1")
	require.NoError(t, err)

	_, err = machine.Fire(context.Background(), "cross", nil)
	require.NoError(t, err)

	// Exits innermost first, then the action, then entries outermost first.
	assert.Equal(t, []string{"exit A1", "exit A", "action", "enter B", "enter B1"}, calls)
	assert.Equal(t, "B1", machine.Current())
}

func TestTransitionWithinComposite(t *testing.T) {
	var calls []string
	hook := func(name string) Action {
		return func(context.Context, eventbus.Payload) error {
			calls = append(calls, name)
			return nil
		}
	}

	registry := NewRegistry()
	require.NoError(t, registry.Register(&State{
		Name: "P", DefaultChild: "X", OnEntry: hook("enter P"), OnExit: hook("exit P"),
	}))
	require.NoError(t, registry.Register(&State{
		Name: "X", Parent: "P", OnExit: hook("exit X"),
		Transitions: []Transition{{Trigger: "next", Target: "Y"}},
	}))
	require.NoError(t, registry.Register(&State{
		Name: "Y", Parent: "P", OnEntry: hook("enter Y"),
	}))

	machine, err := NewMachine(registry, "X")
	require.NoError(t, err)

	_, err = machine.Fire(context.Background(), "next", nil)
	require.NoError(t, err)

	// The shared parent is the LCA and is neither exited nor re-entered.
	assert.Equal(t, []string{"exit X", "enter Y"}, calls)
}

func TestFailedActionLeavesStateUnchanged(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&State{Name: "Idle", Transitions: []Transition{
		{Trigger: "go", Target: "Active", Action: func(context.Context, eventbus.Payload) error {
			return fmt.Errorf("side effect failed")
		}},
	}}))
	require.NoError(t, registry.Register(&State{Name: "Active"}))

	machine, err := NewMachine(registry, "Idle")
	require.NoError(t, err)

	_, err = machine.Fire(context.Background(), "go", nil)
	require.Error(t, err)
	assert.Equal(t, "Idle", machine.Current())
}

// capturingPublisher records published events in order.
type capturingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Payload
}

func (p *capturingPublisher) Publish(_ context.Context, event string, payload eventbus.Payload, _ ...eventbus.PublishOption) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, payload)
	return nil
}

func TestFireEmitsStateChanged(t *testing.T) {
	machine, err := NewMachine(flatRegistry(t), "Idle")
	require.NoError(t, err)

	publisher := &capturingPublisher{}
	machine.Bind("job_processor", publisher)

	_, err = machine.Fire(context.Background(), "start_job", nil)
	require.NoError(t, err)
	_, err = machine.Fire(context.Background(), "complete", nil)
	require.NoError(t, err)

	require.Len(t, publisher.events, 2, "exactly two state.changed events")
	assert.Equal(t, eventbus.Payload{
		"component": "job_processor", "fromState": "Idle", "toState": "Processing",
	}, publisher.events[0])
	assert.Equal(t, eventbus.Payload{
		"component": "job_processor", "fromState": "Processing", "toState": "Complete",
	}, publisher.events[1])
}

func TestFailedFireEmitsNothing(t *testing.T) {
	machine, err := NewMachine(flatRegistry(t), "Idle")
	require.NoError(t, err)

	publisher := &capturingPublisher{}
	machine.Bind("job_processor", publisher)

	_, err = machine.Fire(context.Background(), "bogus", nil)
	require.Error(t, err)
	assert.Empty(t, publisher.events)
}

func TestReset(t *testing.T) {
	machine, err := NewMachine(nestedRegistry(t), "Off")
	require.NoError(t, err)

	require.NoError(t, machine.Reset("Ready"))
	assert.Equal(t, "Ready", machine.Current())

	t.Run("composite resolves through default", func(t *testing.T) {
		require.NoError(t, machine.Reset("Running"))
		assert.Equal(t, "Loading", machine.Current())
	})

	t.Run("unknown state", func(t *testing.T) {
		err := machine.Reset("Nowhere")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrUnknownState)
	})
}

func TestNewMachineValidatesTree(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&State{Name: "A", Parent: "Missing"}))

	_, err := NewMachine(registry, "A")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownState)
}
