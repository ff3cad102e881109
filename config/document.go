package config

// Document is a declarative topology: the shared state tree plus the
// components built on it. Guards, actions, and entry/exit hooks are
// referenced by name and resolved through Bindings at build time.
type Document struct {
	Version    int               `yaml:"version" json:"version"`
	States     []StateConfig     `yaml:"states" json:"states"`
	Components []ComponentConfig `yaml:"components" json:"components"`
}

// StateConfig declares one node of the state tree.
type StateConfig struct {
	Name         string             `yaml:"name" json:"name"`
	Parent       string             `yaml:"parent,omitempty" json:"parent,omitempty"`
	History      bool               `yaml:"history,omitempty" json:"history,omitempty"`
	DefaultChild string             `yaml:"default_child,omitempty" json:"default_child,omitempty"`
	OnEntry      string             `yaml:"on_entry,omitempty" json:"on_entry,omitempty"`
	OnExit       string             `yaml:"on_exit,omitempty" json:"on_exit,omitempty"`
	Transitions  []TransitionConfig `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// TransitionConfig declares one transition on a state. Guard and Action
// name entries in Bindings.
type TransitionConfig struct {
	Trigger string `yaml:"trigger" json:"trigger"`
	Target  string `yaml:"target" json:"target"`
	Guard   string `yaml:"guard,omitempty" json:"guard,omitempty"`
	Action  string `yaml:"action,omitempty" json:"action,omitempty"`
}

// ComponentConfig declares one component and its message rules.
type ComponentConfig struct {
	Name         string       `yaml:"name" json:"name"`
	InitialState string       `yaml:"initial_state" json:"initial_state"`
	Rules        []RuleConfig `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// RuleConfig declares one message rule. An empty Trigger matches every
// message.
type RuleConfig struct {
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	Trigger string `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Deny    bool   `yaml:"deny,omitempty" json:"deny,omitempty"`
	MapTo   string `yaml:"map_to,omitempty" json:"map_to,omitempty"`
}
