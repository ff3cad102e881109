package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360/flowkit/errors"
	"github.com/c360/flowkit/metric"
)

// EventHandlerFailed is published when a handler fails under the Continue
// error policy. Its payload carries eventName, ownerId, and error. Publishing
// it never produces another EventHandlerFailed, even if one of its own
// subscribers fails.
const EventHandlerFailed = "event.handler.failed"

// DeliveryMode selects how matched handlers are executed during one publish.
type DeliveryMode int

const (
	// Sequential invokes handlers one at a time in priority order, each
	// fully awaited before the next starts.
	Sequential DeliveryMode = iota
	// Concurrent launches handlers in priority order; completion order and
	// interleaving are unspecified.
	Concurrent
)

// String returns the string representation of DeliveryMode
func (d DeliveryMode) String() string {
	switch d {
	case Sequential:
		return "sequential"
	case Concurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// ErrorPolicy selects how handler failures affect a publish call.
type ErrorPolicy int

const (
	// Continue isolates each failure: it is logged, reported via
	// EventHandlerFailed, and dispatch proceeds.
	Continue ErrorPolicy = iota
	// Raise propagates the first failure to the publisher. Sequential
	// dispatch aborts immediately; concurrent dispatch awaits all handlers
	// and re-raises the first failure by completion order.
	Raise
)

// String returns the string representation of ErrorPolicy
func (p ErrorPolicy) String() string {
	switch p {
	case Continue:
		return "continue"
	case Raise:
		return "raise"
	default:
		return "unknown"
	}
}

type publishOptions struct {
	delivery DeliveryMode
	policy   ErrorPolicy
}

// PublishOption customizes one publish call.
type PublishOption func(*publishOptions)

// WithDelivery sets the delivery mode; the default is Sequential.
func WithDelivery(mode DeliveryMode) PublishOption {
	return func(o *publishOptions) {
		o.delivery = mode
	}
}

// WithErrorPolicy sets the error policy; the default is Continue.
func WithErrorPolicy(policy ErrorPolicy) PublishOption {
	return func(o *publishOptions) {
		o.policy = policy
	}
}

// Bus is an in-process publish/subscribe event bus with priorities, optional
// filters, wildcard subscriptions, and per-publish delivery mode and error
// policy. The bus is shared by reference across all components registered
// against it.
//
// Registry mutation (Subscribe/Unsubscribe) and dispatch are decoupled: a
// publish operates on a snapshot of matching subscriptions taken at call
// time, so registry changes during an in-flight publish affect only
// subsequent publishes.
type Bus struct {
	mu      sync.RWMutex
	subs    []*subscription
	byID    map[uuid.UUID]*subscription
	nextSeq uint64

	logger  *slog.Logger
	metrics *busMetrics
}

// Option customizes a Bus at construction.
type Option func(*Bus)

// WithLogger sets the structured logger used for isolated handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithMetrics wires bus metrics into a metric registry. A nil registry
// disables metrics.
func WithMetrics(registry *metric.Registry) Option {
	return func(b *Bus) {
		b.metrics = newBusMetrics(registry)
	}
}

// New creates an empty event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		byID: make(map[uuid.UUID]*subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Subscribe registers a handler for every event matching pattern and returns
// a Handle usable for targeted removal. The owner groups subscriptions for
// UnsubscribeAll. Priority must be between 1 (highest) and 5 (lowest);
// out-of-range priorities fail with a config-class error.
func (b *Bus) Subscribe(pattern, owner string, handler Handler, opts ...SubscribeOption) (Handle, error) {
	if err := validatePattern(pattern); err != nil {
		return Handle{}, errors.WrapConfig(err, "Bus", "Subscribe", "pattern validation")
	}
	if handler == nil {
		return Handle{}, errors.WrapConfig(errors.ErrNilHandler, "Bus", "Subscribe", "handler validation")
	}

	sub := &subscription{
		id:       uuid.New(),
		pattern:  pattern,
		owner:    owner,
		handler:  handler,
		priority: PriorityDefault,
	}
	for _, opt := range opts {
		opt(sub)
	}

	if sub.priority < PriorityHighest || sub.priority > PriorityLowest {
		return Handle{}, errors.WrapConfig(
			fmt.Errorf("%w: got %d", errors.ErrPriorityOutOfRange, sub.priority),
			"Bus", "Subscribe", "priority validation")
	}

	b.mu.Lock()
	sub.seq = b.nextSeq
	b.nextSeq++
	b.subs = append(b.subs, sub)
	b.byID[sub.id] = sub
	total := len(b.subs)
	b.mu.Unlock()

	b.metrics.setSubscriptions(total)
	return Handle{id: sub.id}, nil
}

// Unsubscribe removes exactly the subscription identified by handle and
// reports whether something was removed. A second call with the same handle
// returns false.
func (b *Bus) Unsubscribe(handle Handle) bool {
	if !handle.Valid() {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[handle.id]
	if !ok {
		return false
	}
	delete(b.byID, handle.id)
	b.remove(sub)
	b.metrics.setSubscriptions(len(b.subs))
	return true
}

// UnsubscribeAll removes every subscription owned by owner and returns the
// count removed. Components call this on teardown to avoid leaks.
func (b *Bus) UnsubscribeAll(owner string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for _, sub := range b.subs {
		if sub.owner == owner {
			delete(b.byID, sub.id)
			removed++
		}
	}
	if removed > 0 {
		kept := b.subs[:0]
		for _, sub := range b.subs {
			if _, live := b.byID[sub.id]; live {
				kept = append(kept, sub)
			}
		}
		b.subs = kept
		b.metrics.setSubscriptions(len(b.subs))
	}
	return removed
}

// remove deletes sub from the ordered slice, preserving insertion order.
func (b *Bus) remove(sub *subscription) {
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to all matching subscribers. Sequential delivery
// (the default) returns after every handler has run; Concurrent delivery
// returns after scheduling under the Continue policy and after all handlers
// finish under Raise. Publishing with no matching subscriptions is a no-op.
func (b *Bus) Publish(ctx context.Context, event string, payload Payload, opts ...PublishOption) error {
	if event == "" {
		return errors.WrapConfig(errors.ErrEmptyEventName, "Bus", "Publish", "event name validation")
	}

	options := publishOptions{delivery: Sequential, policy: Continue}
	for _, opt := range opts {
		opt(&options)
	}

	return b.dispatch(ctx, event, payload, options, false)
}

// dispatch runs one publish. suppressFailureEvents is set while delivering
// EventHandlerFailed itself: failures there are logged and swallowed to
// prevent unbounded cascades.
func (b *Bus) dispatch(ctx context.Context, event string, payload Payload, opts publishOptions, suppressFailureEvents bool) error {
	matched := b.snapshot(event, payload)
	if len(matched) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		b.metrics.recordPublish(event, opts.delivery, time.Since(start))
	}()

	switch opts.delivery {
	case Concurrent:
		return b.dispatchConcurrent(ctx, event, payload, matched, opts.policy, suppressFailureEvents)
	default:
		return b.dispatchSequential(ctx, event, payload, matched, opts.policy, suppressFailureEvents)
	}
}

// snapshot copies the matching, filter-approved subscriptions in dispatch
// order: priority ascending, insertion order on ties.
func (b *Bus) snapshot(event string, payload Payload) []*subscription {
	b.mu.RLock()
	var matched []*subscription
	for _, sub := range b.subs {
		if Match(sub.pattern, event) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	// Filters run outside the lock; they are caller-supplied code.
	eligible := matched[:0]
	for _, sub := range matched {
		if sub.filter == nil || sub.filter(event, payload) {
			eligible = append(eligible, sub)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].priority < eligible[j].priority
	})
	return eligible
}

func (b *Bus) dispatchSequential(ctx context.Context, event string, payload Payload, subs []*subscription, policy ErrorPolicy, suppress bool) error {
	for _, sub := range subs {
		err := b.invoke(ctx, sub, event, payload)
		if err == nil {
			continue
		}
		if policy == Raise {
			return errors.WrapHandler(err, event, sub.owner)
		}
		b.reportFailure(ctx, event, sub.owner, err, suppress)
	}
	return nil
}

func (b *Bus) dispatchConcurrent(ctx context.Context, event string, payload Payload, subs []*subscription, policy ErrorPolicy, suppress bool) error {
	if policy == Raise {
		// Await every handler; Wait returns the first failure by
		// completion order. No handler is cancelled mid-flight.
		var g errgroup.Group
		for _, sub := range subs {
			sub := sub
			g.Go(func() error {
				if err := b.invoke(ctx, sub, event, payload); err != nil {
					return errors.WrapHandler(err, event, sub.owner)
				}
				return nil
			})
		}
		return g.Wait()
	}

	// Continue: launch in priority order and return without waiting. Each
	// failure is isolated and reported independently.
	for _, sub := range subs {
		sub := sub
		go func() {
			if err := b.invoke(ctx, sub, event, payload); err != nil {
				b.reportFailure(ctx, event, sub.owner, err, suppress)
			}
		}()
	}
	return nil
}

// invoke runs one handler, converting panics into errors so a misbehaving
// subscriber cannot corrupt the dispatch loop.
func (b *Bus) invoke(ctx context.Context, sub *subscription, event string, payload Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	b.metrics.recordInvocation(event)
	return sub.handler(ctx, payload)
}

// reportFailure logs an isolated handler failure and publishes
// EventHandlerFailed, unless this dispatch is itself delivering
// EventHandlerFailed, in which case the failure is swallowed.
func (b *Bus) reportFailure(ctx context.Context, event, owner string, cause error, suppress bool) {
	b.metrics.recordFailure(event, owner)

	if suppress || event == EventHandlerFailed {
		b.logger.Debug("Suppressed failure-event recursion",
			"event", event, "owner", owner, "error", cause)
		return
	}

	b.logger.Error("Event handler failed",
		"event", event, "owner", owner, "error", cause)

	// Fire-and-forget observability event; its outcome never affects the
	// triggering publish.
	_ = b.dispatch(ctx, EventHandlerFailed, Payload{
		"eventName": event,
		"ownerId":   owner,
		"error":     cause,
	}, publishOptions{delivery: Sequential, policy: Continue}, true)
}
