package statemachine

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/flowkit/errors"
	"github.com/c360/flowkit/eventbus"
)

// EventStateChanged is published through the owning component's bus after
// every successful transition, with payload {component, fromState, toState}.
const EventStateChanged = "state.changed"

// Result reports the resolved source and destination leaf of a successful
// fire.
type Result struct {
	From string
	To   string
}

// Publisher is the slice of the event bus the machine needs to announce
// transitions. *eventbus.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event string, payload eventbus.Payload, opts ...eventbus.PublishOption) error
}

// Machine executes triggers against a state registry's transition table. The
// current state is always a leaf; composite states are never current
// directly. History entries exist only for composites flagged History.
type Machine struct {
	mu       sync.Mutex
	registry *Registry
	current  *State
	history  map[string]string // history composite -> last active leaf

	owner     string
	publisher Publisher
}

// NewMachine validates the registry tree and constructs a machine positioned
// at the given initial state. A composite initial state is resolved through
// its default children to a leaf; entry hooks do not run at construction.
func NewMachine(registry *Registry, initial string) (*Machine, error) {
	if registry == nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("state registry is required"),
			"Machine", "NewMachine", "registry validation")
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		registry: registry,
		history:  make(map[string]string),
	}

	s, err := registry.Lookup(initial)
	if err != nil {
		return nil, errors.WrapState(err, "Machine", "NewMachine", "initial state lookup")
	}
	leaf, err := m.resolveLeaf(s, m.history)
	if err != nil {
		return nil, errors.WrapState(err, "Machine", "NewMachine", "initial state resolution")
	}
	m.current = leaf
	return m, nil
}

// Bind attaches the owning component's identity and event bus. Successful
// fires then emit EventStateChanged through the bus with Sequential delivery
// and the Continue policy, so a transition never fails because an observer
// misbehaves.
func (m *Machine) Bind(owner string, publisher Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner = owner
	m.publisher = publisher
}

// Current returns the name of the current leaf state.
func (m *Machine) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Name
}

// Reset repositions the machine at the named state without running entry or
// exit hooks and without emitting events. Collaborators use it to restore a
// persisted state; recorded history is cleared.
func (m *Machine) Reset(state string) error {
	s, err := m.registry.Lookup(state)
	if err != nil {
		return errors.WrapState(err, "Machine", "Reset", "state lookup")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	leaf, err := m.resolveLeaf(s, nil)
	if err != nil {
		return errors.WrapState(err, "Machine", "Reset", "state resolution")
	}
	m.current = leaf
	m.history = make(map[string]string)
	return nil
}

// Fire executes trigger against the transition table. Lookup starts at the
// current leaf and bubbles toward the root. A failed fire leaves the current
// state unchanged and reports a typed error.
func (m *Machine) Fire(ctx context.Context, trigger string, payload eventbus.Payload) (Result, error) {
	m.mu.Lock()
	res, err := m.fireLocked(ctx, trigger, payload)
	publisher, owner := m.publisher, m.owner
	m.mu.Unlock()
	if err != nil {
		return Result{}, err
	}

	if publisher != nil {
		// Fire-and-forget toward observers; defaults are Sequential
		// delivery with the Continue policy.
		_ = publisher.Publish(ctx, EventStateChanged, eventbus.Payload{
			"component": owner,
			"fromState": res.From,
			"toState":   res.To,
		})
	}
	return res, nil
}

func (m *Machine) fireLocked(ctx context.Context, trigger string, payload eventbus.Payload) (Result, error) {
	cur := m.current

	// Walk upward through ancestors until a state declares the trigger.
	var tr *Transition
	for _, name := range m.registry.ancestry(cur.Name) {
		s, err := m.registry.Lookup(name)
		if err != nil {
			return Result{}, errors.WrapState(err, "Machine", "Fire", "ancestor lookup")
		}
		if t := s.transitionFor(trigger); t != nil {
			tr = t
			break
		}
	}
	if tr == nil {
		return Result{}, errors.WrapState(
			fmt.Errorf("%w: %q in state %q", errors.ErrUnhandledTrigger, trigger, cur.Name),
			"Machine", "Fire", "trigger lookup")
	}

	if tr.Guard != nil {
		ok, guardErr := evalGuard(tr.Guard, payload)
		if guardErr != nil {
			return Result{}, errors.WrapState(
				fmt.Errorf("%w: %w", errors.ErrGuardFailed, guardErr),
				"Machine", "Fire", "guard evaluation")
		}
		if !ok {
			return Result{}, errors.WrapState(
				fmt.Errorf("%w: trigger %q in state %q", errors.ErrGuardRejected, trigger, cur.Name),
				"Machine", "Fire", "guard check")
		}
	}

	target, err := m.registry.Lookup(tr.Target)
	if err != nil {
		return Result{}, errors.WrapState(err, "Machine", "Fire", "target lookup")
	}

	lca := m.lca(cur.Name, target.Name)

	// Exit path: current leaf up to, not including, the LCA.
	var exitPath []string
	for _, name := range m.registry.ancestry(cur.Name) {
		if name == lca {
			break
		}
		exitPath = append(exitPath, name)
	}

	// History entries for exited composites are recorded against the
	// exited leaf, but committed only if the whole transition succeeds.
	pendingHistory := make(map[string]string)
	for _, name := range exitPath {
		s, lookupErr := m.registry.Lookup(name)
		if lookupErr != nil {
			return Result{}, errors.WrapState(lookupErr, "Machine", "Fire", "exit path lookup")
		}
		if s.History && !m.registry.IsLeaf(name) {
			pendingHistory[name] = cur.Name
		}
	}

	// The target leaf must be resolvable before any hook runs so a failed
	// fire never moves the machine.
	merged := make(map[string]string, len(m.history)+len(pendingHistory))
	for k, v := range m.history {
		merged[k] = v
	}
	for k, v := range pendingHistory {
		merged[k] = v
	}
	leaf, err := m.resolveLeaf(target, merged)
	if err != nil {
		return Result{}, errors.WrapState(err, "Machine", "Fire", "target resolution")
	}

	// Entry path: below the LCA down to the resolved leaf, outermost first.
	var entryPath []string
	for _, name := range m.registry.ancestry(leaf.Name) {
		if name == lca {
			break
		}
		entryPath = append(entryPath, name)
	}
	reverse(entryPath)

	// Exits, innermost first.
	for _, name := range exitPath {
		s, _ := m.registry.Lookup(name)
		if s.OnExit != nil {
			if hookErr := s.OnExit(ctx, payload); hookErr != nil {
				return Result{}, errors.Wrap(hookErr, "Machine", "Fire", fmt.Sprintf("exit %q", name))
			}
		}
	}

	if tr.Action != nil {
		if actionErr := tr.Action(ctx, payload); actionErr != nil {
			return Result{}, errors.Wrap(actionErr, "Machine", "Fire", "transition action")
		}
	}

	// Entries, outermost first.
	for _, name := range entryPath {
		s, _ := m.registry.Lookup(name)
		if s.OnEntry != nil {
			if hookErr := s.OnEntry(ctx, payload); hookErr != nil {
				return Result{}, errors.Wrap(hookErr, "Machine", "Fire", fmt.Sprintf("enter %q", name))
			}
		}
	}

	for k, v := range pendingHistory {
		m.history[k] = v
	}
	m.current = leaf
	return Result{From: cur.Name, To: leaf.Name}, nil
}

// resolveLeaf descends from s to a concrete leaf: a history composite with a
// recorded entry resumes that leaf, otherwise the declared default child is
// entered, recursing until a leaf is reached. A composite with neither fails
// rather than guessing a default.
func (m *Machine) resolveLeaf(s *State, history map[string]string) (*State, error) {
	cur := s
	for !m.registry.IsLeaf(cur.Name) {
		if cur.History {
			if recorded, ok := history[cur.Name]; ok {
				return m.registry.Lookup(recorded)
			}
		}
		if cur.DefaultChild == "" {
			return nil, fmt.Errorf("%w: %q", errors.ErrNoDefaultChild, cur.Name)
		}
		next, err := m.registry.Lookup(cur.DefaultChild)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// lca returns the least common ancestor of two states, or "" for the
// implicit top state.
func (m *Machine) lca(a, b string) string {
	ancestors := make(map[string]bool)
	for _, name := range m.registry.ancestry(a) {
		ancestors[name] = true
	}
	for _, name := range m.registry.ancestry(b) {
		if ancestors[name] {
			return name
		}
	}
	return ""
}

// evalGuard runs a guard, converting panics into guard evaluation failures.
func evalGuard(g Guard, payload eventbus.Payload) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("guard panic: %v", r)
		}
	}()
	return g(payload)
}

func reverse(names []string) {
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
}
