package eventbus

import (
	"context"

	"github.com/google/uuid"
)

// Payload is the opaque data attached to a published event. It exists only
// for the duration of one publish call; the bus never retains or copies it.
type Payload map[string]any

// Handler processes one delivered event. Handlers may block (await external
// work); the bus awaits them according to the publish call's delivery mode.
// A returned error is isolated or propagated per the error policy.
type Handler func(ctx context.Context, payload Payload) error

// Filter is an optional per-subscription predicate evaluated against the
// concrete event name and payload before dispatch. Returning false drops the
// subscription from that dispatch only.
type Filter func(event string, payload Payload) bool

// Handle is the opaque token returned by Subscribe and the sole means of
// targeted removal. The zero Handle is never issued and removes nothing.
type Handle struct {
	id uuid.UUID
}

// Valid reports whether the handle was issued by a Subscribe call.
func (h Handle) Valid() bool {
	return h.id != uuid.Nil
}

// Priority bounds for subscriptions: 1 is dispatched first, 5 last.
const (
	PriorityHighest = 1
	PriorityDefault = 3
	PriorityLowest  = 5
)

// subscription is the registry's record of one Subscribe call.
type subscription struct {
	id       uuid.UUID
	pattern  string
	owner    string
	handler  Handler
	priority int
	filter   Filter
	seq      uint64 // insertion order, breaks priority ties
}

// SubscribeOption customizes a subscription.
type SubscribeOption func(*subscription)

// WithPriority sets the dispatch priority, 1 (highest) to 5 (lowest).
// Subscriptions default to PriorityDefault.
func WithPriority(priority int) SubscribeOption {
	return func(s *subscription) {
		s.priority = priority
	}
}

// WithFilter attaches a dispatch-time predicate to the subscription.
func WithFilter(filter Filter) SubscribeOption {
	return func(s *subscription) {
		s.filter = filter
	}
}
