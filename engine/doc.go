// Package engine provides the process-wide component registry.
//
// An Engine owns a set of uniquely named components and the single event
// bus they share. It is deliberately thin: registration, lookup, and bulk
// lifecycle control. All communication between components flows through
// the bus, never through the engine.
package engine
