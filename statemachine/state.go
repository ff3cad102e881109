package statemachine

import (
	"context"

	"github.com/c360/flowkit/eventbus"
)

// Guard gates whether a transition may fire. Returning false rejects the
// transition; a non-nil error is a guard evaluation failure, distinct from
// rejection, and propagates to the caller of Fire.
type Guard func(payload eventbus.Payload) (bool, error)

// Action runs during a transition (or on state entry/exit). Actions may
// block; the machine awaits them.
type Action func(ctx context.Context, payload eventbus.Payload) error

// Transition declares that trigger moves this state to the target state.
// Guard and Action are optional.
type Transition struct {
	Trigger string
	Target  string
	Guard   Guard
	Action  Action
}

// State is one node of the state tree. A state with children is composite; a
// childless state is a leaf. Only leaves are ever current. A state with an
// empty Parent sits directly under the implicit top state.
type State struct {
	Name string

	// Parent names the enclosing composite state, empty for root states.
	// Every non-root state has exactly one parent; cycles are forbidden.
	Parent string

	// History marks a composite that resumes its last active leaf when
	// re-entered without a specific child target.
	History bool

	// DefaultChild is the child entered when this composite is targeted
	// with no history entry recorded.
	DefaultChild string

	// OnEntry and OnExit run when the state is entered or exited during a
	// transition, outermost-first on entry and innermost-first on exit.
	OnEntry Action
	OnExit  Action

	// Transitions declared on this state. Lookup bubbles toward the root
	// when the current state declares no matching trigger.
	Transitions []Transition
}

// transitionFor returns the first transition declared for trigger, or nil.
func (s *State) transitionFor(trigger string) *Transition {
	for i := range s.Transitions {
		if s.Transitions[i].Trigger == trigger {
			return &s.Transitions[i]
		}
	}
	return nil
}
