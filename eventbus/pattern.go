package eventbus

import (
	"fmt"
	"strings"

	"github.com/c360/flowkit/errors"
)

// Wildcard matches exactly one dot-delimited segment of an event name.
const Wildcard = "*"

// Match reports whether pattern matches the event name. Patterns are either
// exact event names or contain "*" segments, each matching exactly one
// dot-delimited segment: "state.*" matches "state.changed" but neither
// "statechanged" nor "other.state". Matching is structural on segments,
// never substring.
func Match(pattern, event string) bool {
	if pattern == event {
		return true
	}
	if !strings.Contains(pattern, Wildcard) {
		return false
	}

	patternSegs := strings.Split(pattern, ".")
	eventSegs := strings.Split(event, ".")
	if len(patternSegs) != len(eventSegs) {
		return false
	}

	for i, seg := range patternSegs {
		if seg == Wildcard {
			continue
		}
		if seg != eventSegs[i] {
			return false
		}
	}
	return true
}

// validatePattern rejects empty patterns and patterns with empty segments
// ("state.", ".changed", "a..b").
func validatePattern(pattern string) error {
	if pattern == "" {
		return errors.ErrEmptyPattern
	}
	for _, seg := range strings.Split(pattern, ".") {
		if seg == "" {
			return fmt.Errorf("pattern %q has an empty segment", pattern)
		}
	}
	return nil
}
