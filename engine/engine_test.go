package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowkit/component"
	"github.com/c360/flowkit/errors"
	"github.com/c360/flowkit/eventbus"
	"github.com/c360/flowkit/statemachine"
)

func newTestComponent(t *testing.T, name string, opts ...component.Option) *component.Component {
	t.Helper()

	registry := statemachine.NewRegistry()
	require.NoError(t, registry.Register(&statemachine.State{
		Name: "idle",
		Transitions: []statemachine.Transition{
			{Trigger: "go", Target: "busy"},
		},
	}))
	require.NoError(t, registry.Register(&statemachine.State{
		Name: "busy",
		Transitions: []statemachine.Transition{
			{Trigger: "done", Target: "idle"},
		},
	}))

	machine, err := statemachine.NewMachine(registry, "idle")
	require.NoError(t, err)

	c, err := component.New(name, machine, opts...)
	require.NoError(t, err)
	return c
}

func TestRegisterAndGet(t *testing.T) {
	e := New()
	c := newTestComponent(t, "worker")

	require.NoError(t, e.Register(context.Background(), c))

	got, ok := e.Get("worker")
	require.True(t, ok)
	assert.Same(t, c, got)

	_, ok = e.Get("missing")
	assert.False(t, ok)
}

func TestRegisterNil(t *testing.T) {
	e := New()
	err := e.Register(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestRegisterDuplicateName(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(context.Background(), newTestComponent(t, "worker")))

	err := e.Register(context.Background(), newTestComponent(t, "worker"))
	require.ErrorIs(t, err, errors.ErrDuplicateComponent)
}

func TestRegisterAdoptsEngineBus(t *testing.T) {
	e := New()
	c := newTestComponent(t, "worker")

	require.NoError(t, e.Register(context.Background(), c))
	assert.Same(t, e.Bus(), c.Bus())
}

func TestRegisterKeepsComponentBus(t *testing.T) {
	own := eventbus.New()
	e := New()
	c := newTestComponent(t, "worker", component.WithBus(own))

	require.NoError(t, e.Register(context.Background(), c))
	assert.Same(t, own, c.Bus())
}

func TestRegisterPublishesEvent(t *testing.T) {
	e := New()

	var (
		mu   sync.Mutex
		seen []string
	)
	_, err := e.Bus().Subscribe(EventComponentRegistered, "test",
		func(_ context.Context, payload eventbus.Payload) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, payload["component"].(string))
			return nil
		})
	require.NoError(t, err)

	require.NoError(t, e.Register(context.Background(), newTestComponent(t, "worker")))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"worker"}, seen)
}

func TestDeregister(t *testing.T) {
	e := New()
	ctx := context.Background()
	c := newTestComponent(t, "worker")
	require.NoError(t, e.Register(ctx, c))

	_, err := e.Bus().Subscribe("job.*", "worker", func(context.Context, eventbus.Payload) error {
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, e.Deregister(ctx, "worker"))

	_, ok := e.Get("worker")
	assert.False(t, ok)

	// Subscriptions owned by the component are gone with it.
	assert.Zero(t, e.Bus().UnsubscribeAll("worker"))
}

func TestDeregisterUnknown(t *testing.T) {
	e := New()
	err := e.Deregister(context.Background(), "ghost")
	require.ErrorIs(t, err, errors.ErrComponentNotFound)
}

func TestListSorted(t *testing.T) {
	e := New()
	ctx := context.Background()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, e.Register(ctx, newTestComponent(t, name)))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, e.List())
}

func TestStartAllAndStopAll(t *testing.T) {
	e := New()
	ctx := context.Background()
	a := newTestComponent(t, "a")
	b := newTestComponent(t, "b")
	require.NoError(t, e.Register(ctx, a))
	require.NoError(t, e.Register(ctx, b))

	require.NoError(t, e.StartAll(ctx))
	assert.Equal(t, component.StatusRunning, a.Status())
	assert.Equal(t, component.StatusRunning, b.Status())

	// Already-running components are skipped on a second pass.
	require.NoError(t, e.StartAll(ctx))

	require.NoError(t, e.StopAll(ctx))
	assert.Equal(t, component.StatusStopped, a.Status())
	assert.Equal(t, component.StatusStopped, b.Status())

	// Stopped components are skipped too.
	require.NoError(t, e.StopAll(ctx))
}

func TestStopAllIncludesPaused(t *testing.T) {
	e := New()
	ctx := context.Background()
	c := newTestComponent(t, "worker")
	require.NoError(t, e.Register(ctx, c))
	require.NoError(t, e.StartAll(ctx))
	require.NoError(t, c.Pause(ctx))

	require.NoError(t, e.StopAll(ctx))
	assert.Equal(t, component.StatusStopped, c.Status())
}
