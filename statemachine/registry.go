package statemachine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/flowkit/errors"
)

// Registry maps state names to state definitions. It is populated before any
// Machine referencing those names is constructed and passed by reference into
// machines and configuration loaders; there is no process-wide singleton, so
// tests construct isolated registries.
type Registry struct {
	mu       sync.RWMutex
	states   map[string]*State
	children map[string][]string // parent name -> child names, registration order
}

// NewRegistry creates an empty state registry.
func NewRegistry() *Registry {
	return &Registry{
		states:   make(map[string]*State),
		children: make(map[string][]string),
	}
}

// Register adds a state definition. Duplicate names are rejected. Parents
// may be registered after their children; Validate checks the finished tree.
func (r *Registry) Register(s *State) error {
	if s == nil || s.Name == "" {
		return errors.WrapConfig(
			fmt.Errorf("state definition must have a name"),
			"Registry", "Register", "state validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[s.Name]; exists {
		return errors.WrapState(
			fmt.Errorf("%w: %q", errors.ErrDuplicateState, s.Name),
			"Registry", "Register", "duplicate state check")
	}

	r.states[s.Name] = s
	if s.Parent != "" {
		r.children[s.Parent] = append(r.children[s.Parent], s.Name)
	}
	return nil
}

// Lookup returns the state registered under name. Unknown names fail with an
// error enumerating a bounded sample of registered names.
func (r *Registry) Lookup(name string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.states[name]
	if !ok {
		return nil, errors.UnknownState(name, r.sortedNames())
	}
	return s, nil
}

// Names returns all registered state names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.states))
	for name := range r.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsLeaf reports whether the named state has no children.
func (r *Registry) IsLeaf(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.children[name]) == 0
}

// Children returns the child names of a composite state in registration
// order.
func (r *Registry) Children(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.children[name]...)
}

// Validate checks the registered tree as a whole: every parent and
// transition target exists, every parent chain reaches a root without
// cycles, and declared default children are actual children.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, s := range r.states {
		if s.Parent != "" {
			if _, ok := r.states[s.Parent]; !ok {
				return errors.WrapState(
					errors.UnknownState(s.Parent, r.sortedNames()),
					"Registry", "Validate", fmt.Sprintf("parent of %q", name))
			}
		}
		if err := r.checkAncestry(name); err != nil {
			return err
		}
		if s.DefaultChild != "" {
			child, ok := r.states[s.DefaultChild]
			if !ok {
				return errors.WrapState(
					errors.UnknownState(s.DefaultChild, r.sortedNames()),
					"Registry", "Validate", fmt.Sprintf("default child of %q", name))
			}
			if child.Parent != name {
				return errors.WrapState(
					fmt.Errorf("default child %q is not a child of %q", s.DefaultChild, name),
					"Registry", "Validate", "default child check")
			}
		}
		for _, t := range s.Transitions {
			if _, ok := r.states[t.Target]; !ok {
				return errors.WrapState(
					errors.UnknownState(t.Target, r.sortedNames()),
					"Registry", "Validate",
					fmt.Sprintf("target of trigger %q on %q", t.Trigger, name))
			}
		}
	}
	return nil
}

// checkAncestry walks the parent chain of name, failing on cycles.
func (r *Registry) checkAncestry(name string) error {
	seen := map[string]bool{}
	for cur := name; cur != ""; {
		if seen[cur] {
			return errors.WrapState(
				fmt.Errorf("%w: involving %q", errors.ErrStateCycle, cur),
				"Registry", "Validate", "ancestry check")
		}
		seen[cur] = true
		s, ok := r.states[cur]
		if !ok {
			return nil // missing parent reported elsewhere
		}
		cur = s.Parent
	}
	return nil
}

// ancestry returns the chain from name up to its root, starting with name
// itself. Caller must hold at least a read lock via public methods; this is
// used internally by Machine which takes its own snapshot of the tree shape
// through locked accessors.
func (r *Registry) ancestry(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []string
	for cur := name; cur != ""; {
		chain = append(chain, cur)
		s, ok := r.states[cur]
		if !ok {
			break
		}
		cur = s.Parent
	}
	return chain
}
