// Package eventbus provides an in-process asynchronous publish/subscribe
// event bus with priorities, filters, wildcard subscriptions, and per-publish
// delivery modes and error policies.
//
// # Subscriptions
//
// A subscription binds a handler to an event pattern. Patterns are exact
// dot-delimited names or contain "*" segments, each matching exactly one
// segment:
//
//	handle, err := bus.Subscribe("state.*", "audit", func(ctx context.Context, p eventbus.Payload) error {
//	    log.Printf("transition: %v", p)
//	    return nil
//	}, eventbus.WithPriority(2))
//
// Subscribe returns an opaque Handle, the sole means of targeted removal.
// Unsubscribe is idempotent-safe: a second call with the same handle returns
// false. UnsubscribeAll removes everything one owner registered.
//
// # Dispatch
//
// Publish snapshots the matching subscriptions at call time; registry
// mutation during an in-flight publish affects only later publishes.
// Eligible handlers run in priority order (1 first, insertion order on ties)
// under the selected delivery mode:
//
//   - Sequential: one at a time, fully awaited. Total order per publish.
//   - Concurrent: launched in priority order; completion order is undefined.
//
// The error policy decides what a handler failure means for the publisher:
//
//   - Continue: the failure is logged, an event.handler.failed event is
//     published, and dispatch proceeds.
//   - Raise: sequential dispatch aborts and returns the failure; concurrent
//     dispatch awaits all handlers and returns the first failure by
//     completion.
//
// Publishing event.handler.failed never triggers another
// event.handler.failed, so failure cascades are bounded.
//
// # Concurrency
//
// All methods are safe for concurrent use. Registry mutation is mutex
// guarded; dispatch reads a snapshot. The bus performs no blocking I/O and
// schedules no timers; handlers that need deadlines or retries are wrapped
// externally (see package middleware).
package eventbus
