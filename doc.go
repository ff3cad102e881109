// Package flowkit coordinates stateful components through two cooperating
// engines: an asynchronous publish/subscribe event bus and a hierarchical
// state machine.
//
// # Architecture
//
// FlowKit is an in-process coordination core. Independent components react to
// external messages, transition through declared states under guard
// conditions, and broadcast transition events to interested listeners without
// tight coupling.
//
//	┌─────────────────────────────────────┐
//	│            Engine                   │  Component registry
//	│      (register, lookup, bulk)       │  Lifecycle fan-out
//	└─────────────────────────────────────┘
//	           ↓ manages
//	┌─────────────────────────────────────┐
//	│          Components                 │  Rules, lifecycle status,
//	│   (handle message → fire trigger)   │  owned state machine
//	└─────────────────────────────────────┘
//	           ↓ communicate via
//	┌─────────────────────────────────────┐
//	│          Event Bus                  │  Priorities, filters,
//	│  (wildcard patterns, pub/sub)       │  delivery modes
//	└─────────────────────────────────────┘
//
// Data flow: an external caller invokes Component.Handle(trigger, payload);
// the component's rule list may permit, deny, or rewrite the trigger; the
// state machine fires it against the state registry's transition table; on a
// successful transition the component publishes "state.changed" through its
// event bus, and all matching subscribers (persistence, observability, UI)
// run under the publish call's delivery mode.
//
// # Packages
//
//   - eventbus: pub/sub bus with priorities, filters, wildcard subscriptions,
//     sequential/concurrent delivery and continue/raise error policies
//   - statemachine: hierarchical states with guards, entry/exit actions,
//     history composites and least-common-ancestor transition semantics
//   - component: the unit of coordination; owns a machine and a rule list
//   - engine: thin process-wide registry of components
//   - errors: classified error taxonomy shared by all packages
//   - metric: prometheus metrics registry
//   - config: YAML/JSON topology loader (collaborator; public API only)
//   - storage/snapshot: flat-file state persistence (collaborator)
//   - middleware: composable handler wrappers (retry, throttle, timeout)
//
// # Events
//
// The core produces four well-known events:
//
//	engine.component.registered   {component}
//	component.message.received    {component, message}
//	state.changed                 {component, fromState, toState}
//	event.handler.failed          {eventName, ownerId, error}
//
// Collaborators consume these through the bus's public Subscribe surface
// only; nothing outside the core touches internal registries.
//
// # Scope
//
// FlowKit does not provide distributed messaging across processes, does not
// guarantee durability of events, and does not schedule background timers.
// Retry and deadline policy live at the handler boundary (package middleware),
// never inside the bus.
package flowkit
