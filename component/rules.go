package component

import (
	"github.com/c360/flowkit/eventbus"
)

// Rule is one entry of a component's declarative predicate→action mapping,
// evaluated against each incoming message before it reaches the state
// machine. The first matching rule decides: Deny rejects the message, MapTo
// rewrites the effective trigger. A rule with neither explicitly permits.
type Rule struct {
	// Name identifies the rule in logs and errors.
	Name string

	// When is the predicate; nil matches every message.
	When func(trigger string, payload eventbus.Payload) bool

	// Deny rejects matching messages with ErrMessageDenied.
	Deny bool

	// MapTo rewrites the effective trigger for matching messages. Ignored
	// when Deny is set.
	MapTo string
}

func (r Rule) matches(trigger string, payload eventbus.Payload) bool {
	if r.When == nil {
		return true
	}
	return r.When(trigger, payload)
}

// MatchTrigger builds a predicate matching one exact trigger. It is the
// predicate shape configuration files can express.
func MatchTrigger(trigger string) func(string, eventbus.Payload) bool {
	return func(t string, _ eventbus.Payload) bool {
		return t == trigger
	}
}
