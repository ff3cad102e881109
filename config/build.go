package config

import (
	"fmt"

	"github.com/c360/flowkit/component"
	"github.com/c360/flowkit/errors"
	"github.com/c360/flowkit/statemachine"
)

// Bindings resolves the guard, action, and hook names a document references
// into Go functions. Resolution is an explicit map lookup; a document can
// only reach code the host program registered here.
type Bindings struct {
	Guards  map[string]statemachine.Guard
	Actions map[string]statemachine.Action
}

func (b Bindings) guard(name string) (statemachine.Guard, error) {
	if name == "" {
		return nil, nil
	}
	g, ok := b.Guards[name]
	if !ok {
		return nil, fmt.Errorf("unbound guard %q", name)
	}
	return g, nil
}

func (b Bindings) action(name string) (statemachine.Action, error) {
	if name == "" {
		return nil, nil
	}
	a, ok := b.Actions[name]
	if !ok {
		return nil, fmt.Errorf("unbound action %q", name)
	}
	return a, nil
}

// Build turns a validated document into a state registry and components.
// Every component shares the registry; each gets its own machine seeded at
// its configured initial state.
func Build(doc *Document, bindings Bindings) (*statemachine.Registry, []*component.Component, error) {
	registry := statemachine.NewRegistry()

	for _, sc := range doc.States {
		state, err := buildState(sc, bindings)
		if err != nil {
			return nil, nil, errors.WrapConfig(err, "config", "Build",
				fmt.Sprintf("build state %s", sc.Name))
		}
		if err := registry.Register(state); err != nil {
			return nil, nil, errors.Wrap(err, "config", "Build",
				fmt.Sprintf("register state %s", sc.Name))
		}
	}
	if err := registry.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "config", "Build", "validate state tree")
	}

	components := make([]*component.Component, 0, len(doc.Components))
	for _, cc := range doc.Components {
		machine, err := statemachine.NewMachine(registry, cc.InitialState)
		if err != nil {
			return nil, nil, errors.Wrap(err, "config", "Build",
				fmt.Sprintf("build machine for %s", cc.Name))
		}

		rules := make([]component.Rule, 0, len(cc.Rules))
		for _, rc := range cc.Rules {
			rules = append(rules, buildRule(rc))
		}

		c, err := component.New(cc.Name, machine, component.WithRules(rules...))
		if err != nil {
			return nil, nil, errors.Wrap(err, "config", "Build",
				fmt.Sprintf("build component %s", cc.Name))
		}
		components = append(components, c)
	}

	return registry, components, nil
}

func buildState(sc StateConfig, bindings Bindings) (*statemachine.State, error) {
	onEntry, err := bindings.action(sc.OnEntry)
	if err != nil {
		return nil, err
	}
	onExit, err := bindings.action(sc.OnExit)
	if err != nil {
		return nil, err
	}

	transitions := make([]statemachine.Transition, 0, len(sc.Transitions))
	for _, tc := range sc.Transitions {
		guard, err := bindings.guard(tc.Guard)
		if err != nil {
			return nil, fmt.Errorf("transition %s: %w", tc.Trigger, err)
		}
		action, err := bindings.action(tc.Action)
		if err != nil {
			return nil, fmt.Errorf("transition %s: %w", tc.Trigger, err)
		}
		transitions = append(transitions, statemachine.Transition{
			Trigger: tc.Trigger,
			Target:  tc.Target,
			Guard:   guard,
			Action:  action,
		})
	}

	return &statemachine.State{
		Name:         sc.Name,
		Parent:       sc.Parent,
		History:      sc.History,
		DefaultChild: sc.DefaultChild,
		OnEntry:      onEntry,
		OnExit:       onExit,
		Transitions:  transitions,
	}, nil
}

func buildRule(rc RuleConfig) component.Rule {
	rule := component.Rule{
		Name:  rc.Name,
		Deny:  rc.Deny,
		MapTo: rc.MapTo,
	}
	if rc.Trigger != "" {
		rule.When = component.MatchTrigger(rc.Trigger)
	}
	return rule
}
