// Package errors provides standardized error handling patterns for FlowKit.
// It includes error classification, standard error variables, and helper
// functions for consistent error wrapping across the bus, state machine,
// component, and engine packages.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Class represents the classification of errors for handling purposes
type Class int

const (
	// ClassConfig represents errors due to invalid parameters or configuration
	ClassConfig Class = iota
	// ClassState represents state machine errors (lookup, trigger, guard)
	ClassState
	// ClassLifecycle represents invalid component lifecycle operations
	ClassLifecycle
	// ClassHandler represents caller-supplied handler failures surfaced by
	// the bus; the underlying error is opaque to the core
	ClassHandler
)

// String returns the string representation of Class
func (c Class) String() string {
	switch c {
	case ClassConfig:
		return "config"
	case ClassState:
		return "state"
	case ClassLifecycle:
		return "lifecycle"
	case ClassHandler:
		return "handler"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Subscription and bus configuration errors
	ErrPriorityOutOfRange = errors.New("priority must be between 1 and 5")
	ErrEmptyPattern       = errors.New("subscription pattern is empty")
	ErrNilHandler         = errors.New("subscription handler is nil")
	ErrEmptyEventName     = errors.New("event name is empty")

	// State machine errors
	ErrUnknownState     = errors.New("unknown state")
	ErrUnhandledTrigger = errors.New("trigger not handled by current state or any ancestor")
	ErrGuardRejected    = errors.New("transition guard rejected")
	ErrGuardFailed      = errors.New("transition guard evaluation failed")
	ErrNoDefaultChild   = errors.New("composite state has no history entry and no default child")
	ErrNotALeaf         = errors.New("state is not a leaf state")

	// State registry errors
	ErrDuplicateState = errors.New("state already registered")
	ErrStateCycle     = errors.New("state parent chain contains a cycle")

	// Component lifecycle errors
	ErrAlreadyStarted = errors.New("component already running")
	ErrNotRunning     = errors.New("component not running")
	ErrNotPaused      = errors.New("component not paused")
	ErrStopped        = errors.New("component is stopped")

	// Component and engine errors
	ErrDuplicateComponent = errors.New("component name already registered")
	ErrComponentNotFound  = errors.New("component not found")
	ErrMessageDenied      = errors.New("message denied by rule")

	// Storage errors
	ErrKeyNotFound = errors.New("key not found")
)

// ClassifiedError wraps an error with its classification and the component
// and operation that produced it
type ClassifiedError struct {
	Class     Class
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	return classOf(err) == ClassConfig ||
		errors.Is(err, ErrPriorityOutOfRange) ||
		errors.Is(err, ErrEmptyPattern) ||
		errors.Is(err, ErrNilHandler) ||
		errors.Is(err, ErrEmptyEventName)
}

// IsState checks if an error is a state machine error
func IsState(err error) bool {
	return classOf(err) == ClassState ||
		errors.Is(err, ErrUnknownState) ||
		errors.Is(err, ErrUnhandledTrigger) ||
		errors.Is(err, ErrGuardRejected) ||
		errors.Is(err, ErrGuardFailed) ||
		errors.Is(err, ErrNoDefaultChild) ||
		errors.Is(err, ErrNotALeaf) ||
		errors.Is(err, ErrDuplicateState) ||
		errors.Is(err, ErrStateCycle)
}

// IsLifecycle checks if an error is a lifecycle error
func IsLifecycle(err error) bool {
	return classOf(err) == ClassLifecycle ||
		errors.Is(err, ErrAlreadyStarted) ||
		errors.Is(err, ErrNotRunning) ||
		errors.Is(err, ErrNotPaused) ||
		errors.Is(err, ErrStopped)
}

func classOf(err error) Class {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return Class(-1)
}

// Classify returns the error class for an error. Errors that carry no
// classification default to ClassHandler: the core treats them as opaque
// caller-supplied failures.
func Classify(err error) Class {
	if ce := classOf(err); ce >= ClassConfig && ce <= ClassHandler {
		return ce
	}
	if IsConfig(err) {
		return ClassConfig
	}
	if IsState(err) {
		return ClassState
	}
	if IsLifecycle(err) {
		return ClassLifecycle
	}
	return ClassHandler
}

// newClassified creates a new classified error.
// This is an internal helper - use WrapConfig(), WrapState(), or WrapLifecycle() instead.
func newClassified(class Class, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapConfig wraps an error as a configuration error with context
func WrapConfig(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ClassConfig, wrappedErr, component, method, wrappedErr.Error())
}

// WrapState wraps an error as a state machine error with context
func WrapState(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ClassState, wrappedErr, component, method, wrappedErr.Error())
}

// WrapLifecycle wraps an error as a lifecycle error with context
func WrapLifecycle(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ClassLifecycle, wrappedErr, component, method, wrappedErr.Error())
}

// WrapHandler wraps a caller-supplied handler error with the event name and
// owner that produced it. The underlying error stays reachable via Unwrap.
func WrapHandler(err error, event, owner string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("handler for %q owned by %q failed: %w", event, owner, err)
	return newClassified(ClassHandler, wrapped, owner, event, wrapped.Error())
}

// maxNameSample bounds how many known names an UnknownState message lists.
const maxNameSample = 10

// UnknownState builds an ErrUnknownState error whose message enumerates a
// bounded sample of currently registered names to aid debugging.
func UnknownState(name string, known []string) error {
	sample := known
	truncated := ""
	if len(sample) > maxNameSample {
		sample = sample[:maxNameSample]
		truncated = fmt.Sprintf(" (and %d more)", len(known)-maxNameSample)
	}
	if len(sample) == 0 {
		return fmt.Errorf("%w: %q (no states registered)", ErrUnknownState, name)
	}
	return fmt.Errorf("%w: %q (registered: %s%s)",
		ErrUnknownState, name, strings.Join(sample, ", "), truncated)
}
