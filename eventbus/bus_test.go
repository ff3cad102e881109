package eventbus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowkit/errors"
)

func noopHandler(context.Context, Payload) error { return nil }

// recorder collects handler invocations in arrival order, safe for
// concurrent appends.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) handler(name string) Handler {
	return func(context.Context, Payload) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
		return nil
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestSubscribeValidation(t *testing.T) {
	bus := New()

	t.Run("rejects empty pattern", func(t *testing.T) {
		_, err := bus.Subscribe("", "owner", noopHandler)
		require.Error(t, err)
		assert.True(t, errors.IsConfig(err))
	})

	t.Run("rejects nil handler", func(t *testing.T) {
		_, err := bus.Subscribe("x", "owner", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrNilHandler)
	})

	t.Run("rejects out-of-range priority", func(t *testing.T) {
		for _, priority := range []int{0, 6, -1, 100} {
			_, err := bus.Subscribe("x", "owner", noopHandler, WithPriority(priority))
			require.Error(t, err, "priority %d", priority)
			assert.ErrorIs(t, err, errors.ErrPriorityOutOfRange)
		}
	})

	t.Run("accepts full priority range", func(t *testing.T) {
		for priority := PriorityHighest; priority <= PriorityLowest; priority++ {
			handle, err := bus.Subscribe("x", "owner", noopHandler, WithPriority(priority))
			require.NoError(t, err)
			assert.True(t, handle.Valid())
		}
	})
}

func TestPublishNoSubscribersIsNoOp(t *testing.T) {
	bus := New()
	assert.NoError(t, bus.Publish(context.Background(), "nobody.cares", Payload{"k": "v"}))
}

func TestPublishEmptyEventName(t *testing.T) {
	bus := New()
	err := bus.Publish(context.Background(), "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyEventName)
}

func TestSequentialPriorityOrdering(t *testing.T) {
	bus := New()
	rec := &recorder{}

	// Subscribe out of priority order; ties must keep insertion order.
	_, err := bus.Subscribe("x", "a", rec.handler("p3-first"), WithPriority(3))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "b", rec.handler("p1"), WithPriority(1))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "c", rec.handler("p5"), WithPriority(5))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "d", rec.handler("p3-second"), WithPriority(3))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "e", rec.handler("p2"), WithPriority(2))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "x", nil))
	assert.Equal(t, []string{"p1", "p2", "p3-first", "p3-second", "p5"}, rec.got())
}

func TestUnsubscribeIdempotent(t *testing.T) {
	bus := New()

	handle, err := bus.Subscribe("x", "owner", noopHandler)
	require.NoError(t, err)

	assert.True(t, bus.Unsubscribe(handle))
	assert.False(t, bus.Unsubscribe(handle), "second removal must return false")
	assert.False(t, bus.Unsubscribe(Handle{}), "zero handle removes nothing")
}

func TestUnsubscribeAll(t *testing.T) {
	bus := New()

	for i := 0; i < 3; i++ {
		_, err := bus.Subscribe(fmt.Sprintf("a.%d", i), "alice", noopHandler)
		require.NoError(t, err)
	}
	bobHandle, err := bus.Subscribe("b", "bob", noopHandler)
	require.NoError(t, err)

	assert.Equal(t, 3, bus.UnsubscribeAll("alice"))
	assert.Equal(t, 0, bus.UnsubscribeAll("alice"))

	// Bob's subscription survives and is still individually removable.
	assert.True(t, bus.Unsubscribe(bobHandle))
}

func TestFilterDropsSubscriptionPerDispatch(t *testing.T) {
	bus := New()
	rec := &recorder{}

	_, err := bus.Subscribe("job.*", "filtered", rec.handler("filtered"),
		WithFilter(func(event string, payload Payload) bool {
			return payload["severity"] == "high"
		}))
	require.NoError(t, err)
	_, err = bus.Subscribe("job.*", "always", rec.handler("always"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "job.failed", Payload{"severity": "low"}))
	assert.Equal(t, []string{"always"}, rec.got())

	require.NoError(t, bus.Publish(context.Background(), "job.failed", Payload{"severity": "high"}))
	assert.Equal(t, []string{"always", "filtered", "always"}, rec.got())
}

func TestRegistryMutationDuringDispatchDoesNotAffectSnapshot(t *testing.T) {
	bus := New()
	rec := &recorder{}

	var late Handle
	_, err := bus.Subscribe("x", "first", func(ctx context.Context, p Payload) error {
		// Mutations during dispatch must only affect subsequent publishes.
		var subErr error
		late, subErr = bus.Subscribe("x", "late", rec.handler("late"))
		return subErr
	}, WithPriority(1))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "second", rec.handler("second"), WithPriority(5))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "x", nil))
	assert.Equal(t, []string{"second"}, rec.got(), "late subscriber must not see the in-flight publish")

	require.NoError(t, bus.Publish(context.Background(), "x", nil))
	assert.Contains(t, rec.got(), "late")
	assert.True(t, late.Valid())
}

func TestSequentialContinueIsolatesFailures(t *testing.T) {
	bus := New()
	rec := &recorder{}

	var failures []Payload
	var failuresMu sync.Mutex
	_, err := bus.Subscribe(EventHandlerFailed, "observer", func(ctx context.Context, p Payload) error {
		failuresMu.Lock()
		defer failuresMu.Unlock()
		failures = append(failures, p)
		return nil
	})
	require.NoError(t, err)

	_, err = bus.Subscribe("x", "ok1", rec.handler("ok1"), WithPriority(1))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "bad", func(context.Context, Payload) error {
		return fmt.Errorf("kaboom")
	}, WithPriority(2))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "ok2", rec.handler("ok2"), WithPriority(3))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "x", nil))

	assert.Equal(t, []string{"ok1", "ok2"}, rec.got(), "remaining handlers still execute")
	require.Len(t, failures, 1, "exactly one failure event")
	assert.Equal(t, "x", failures[0]["eventName"])
	assert.Equal(t, "bad", failures[0]["ownerId"])
	assert.Error(t, failures[0]["error"].(error))
}

func TestFailureEventNeverRecurses(t *testing.T) {
	bus := New()

	var failureDeliveries int
	var mu sync.Mutex
	_, err := bus.Subscribe(EventHandlerFailed, "misbehaving-observer", func(context.Context, Payload) error {
		mu.Lock()
		failureDeliveries++
		mu.Unlock()
		return fmt.Errorf("observer also fails")
	})
	require.NoError(t, err)

	_, err = bus.Subscribe("x", "bad", func(context.Context, Payload) error {
		return fmt.Errorf("original failure")
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "x", nil))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, failureDeliveries,
		"a failing event.handler.failed subscriber must not trigger another failure event")
}

func TestSequentialRaiseAbortsImmediately(t *testing.T) {
	bus := New()
	rec := &recorder{}

	_, err := bus.Subscribe("x", "ok", rec.handler("ok"), WithPriority(1))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "bad", func(context.Context, Payload) error {
		return fmt.Errorf("kaboom")
	}, WithPriority(2))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "never", rec.handler("never"), WithPriority(3))
	require.NoError(t, err)

	err = bus.Publish(context.Background(), "x", nil, WithErrorPolicy(Raise))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Contains(t, err.Error(), "bad", "error carries the owning subscriber")
	assert.Contains(t, err.Error(), "x", "error carries the event name")
	assert.Equal(t, []string{"ok"}, rec.got(), "handlers after the failure must not run")
}

func TestConcurrentRaiseAwaitsAllHandlers(t *testing.T) {
	bus := New()

	var finished int32
	var mu sync.Mutex
	slowOK := func(context.Context, Payload) error {
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		finished++
		mu.Unlock()
		return nil
	}

	_, err := bus.Subscribe("x", "slow1", slowOK, WithPriority(1))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "bad", func(context.Context, Payload) error {
		return fmt.Errorf("fast failure")
	}, WithPriority(2))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "slow2", slowOK, WithPriority(3))
	require.NoError(t, err)

	err = bus.Publish(context.Background(), "x", nil,
		WithDelivery(Concurrent), WithErrorPolicy(Raise))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fast failure")

	mu.Lock()
	defer mu.Unlock()
	assert.EqualValues(t, 2, finished, "no handler is cancelled mid-flight")
}

func TestConcurrentContinueDoesNotAssumeCompletionOrder(t *testing.T) {
	bus := New()
	rec := &recorder{}
	done := make(chan struct{}, 2)

	// The first handler sleeps longer than the second; completion order is
	// unspecified by design, so only membership is asserted.
	_, err := bus.Subscribe("x", "slow", func(ctx context.Context, p Payload) error {
		time.Sleep(30 * time.Millisecond)
		rec.handler("slow")(ctx, p)
		done <- struct{}{}
		return nil
	}, WithPriority(1))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "fast", func(ctx context.Context, p Payload) error {
		rec.handler("fast")(ctx, p)
		done <- struct{}{}
		return nil
	}, WithPriority(2))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "x", nil, WithDelivery(Concurrent)))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for concurrent handlers")
		}
	}
	assert.ElementsMatch(t, []string{"slow", "fast"}, rec.got())
}

func TestConcurrentContinueIsolatesEachFailure(t *testing.T) {
	bus := New()

	failures := make(chan string, 4)
	_, err := bus.Subscribe(EventHandlerFailed, "observer", func(ctx context.Context, p Payload) error {
		failures <- p["ownerId"].(string)
		return nil
	})
	require.NoError(t, err)

	for _, owner := range []string{"bad1", "bad2"} {
		_, err = bus.Subscribe("x", owner, func(context.Context, Payload) error {
			return fmt.Errorf("fail")
		})
		require.NoError(t, err)
	}

	require.NoError(t, bus.Publish(context.Background(), "x", nil, WithDelivery(Concurrent)))

	reported := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case owner := <-failures:
			reported[owner] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for failure reports")
		}
	}
	assert.True(t, reported["bad1"] && reported["bad2"])
}

func TestHandlerPanicIsIsolated(t *testing.T) {
	bus := New()
	rec := &recorder{}

	_, err := bus.Subscribe("x", "panicky", func(context.Context, Payload) error {
		panic("handler bug")
	}, WithPriority(1))
	require.NoError(t, err)
	_, err = bus.Subscribe("x", "ok", rec.handler("ok"), WithPriority(2))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "x", nil))
	assert.Equal(t, []string{"ok"}, rec.got())

	err = bus.Publish(context.Background(), "x", nil, WithErrorPolicy(Raise))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestWildcardSubscriptionReceivesFamily(t *testing.T) {
	bus := New()
	rec := &recorder{}

	_, err := bus.Subscribe("state.*", "audit", rec.handler("audit"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "state.changed", nil))
	require.NoError(t, bus.Publish(context.Background(), "statechanged", nil))
	require.NoError(t, bus.Publish(context.Background(), "other.state", nil))

	assert.Equal(t, []string{"audit"}, rec.got())
}
