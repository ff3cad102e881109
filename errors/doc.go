// Package errors provides standardized error handling patterns for FlowKit.
//
// # Overview
//
// The errors package implements a four-class error taxonomy for the
// coordination core: Config (malformed subscription or registry parameters),
// State (state machine lookup, trigger, and guard failures), Lifecycle
// (invalid component lifecycle operations), and Handler (caller-supplied
// handler failures, opaque to the core).
//
// The classification integrates with Go's standard error handling patterns,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if priority < 1 || priority > 5 {
//	    return errors.ErrPriorityOutOfRange
//	}
//
// Wrap errors with context for debugging:
//
//	if err := machine.Fire(ctx, trigger, payload); err != nil {
//	    return errors.WrapState(err, "Component", "Handle", "fire trigger")
//	}
//
// Check classification at the call site:
//
//	if errors.IsState(err) {
//	    // current state is unchanged; report to caller
//	}
//
// # Propagation Policy
//
// Registry and state lookup errors always surface synchronously to the
// caller of Fire or Subscribe. Handler errors are isolated by the bus
// according to the publish call's delivery mode and error policy, and never
// corrupt bus or state machine internals. Nothing in the core retries
// automatically; retry is a handler-boundary concern (package middleware).
package errors
