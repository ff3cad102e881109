// Package statemachine provides hierarchical state machines with guards,
// entry/exit actions, history composites, and least-common-ancestor
// transition semantics.
//
// States form a tree rooted at an implicit top state. A state with children
// is composite and is never current directly; the machine always rests on a
// leaf. Transitions are declared per state; firing a trigger the current
// leaf does not declare bubbles the lookup toward the root.
//
// A successful fire exits every state from the current leaf up to (not
// including) the least common ancestor of source and target, innermost
// first, runs the transition action, then enters every state down to the
// target leaf, outermost first. Composites flagged History record the exited
// leaf on the way out and resume it when re-entered without a specific child
// target; otherwise the declared default child is entered, recursing to a
// leaf. A composite with neither a history entry nor a default child fails
// the fire rather than guessing.
//
//	registry := statemachine.NewRegistry()
//	registry.Register(&statemachine.State{Name: "Idle", Transitions: []statemachine.Transition{
//	    {Trigger: "start_job", Target: "Processing"},
//	}})
//	registry.Register(&statemachine.State{Name: "Processing", Transitions: []statemachine.Transition{
//	    {Trigger: "complete", Target: "Complete"},
//	}})
//	registry.Register(&statemachine.State{Name: "Complete"})
//
//	machine, err := statemachine.NewMachine(registry, "Idle")
//
// A failed fire — unhandled trigger, rejected guard, guard evaluation
// failure, or unresolvable target — leaves the current state unchanged and
// reports a typed error from the errors package.
package statemachine
