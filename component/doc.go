// Package component provides the unit of coordination the engine manages.
//
// A Component owns a hierarchical state machine and an ordered rule list,
// and holds a reference to a shared event bus. Incoming messages flow
// through Handle: the message is announced as component.message.received,
// the rule list may permit, deny, or rewrite the trigger, and the effective
// trigger is fired on the state machine. Successful transitions surface as
// state.changed events on the bus.
//
// Lifecycle status (Created → Running ⇄ Paused → Stopped) is orthogonal to
// the domain state machine's current state. Invalid lifecycle operations —
// resuming a stopped component, pausing one that never started — fail with
// typed lifecycle errors rather than silently no-op'ing. Stopping a
// component removes every bus subscription it owns.
package component
