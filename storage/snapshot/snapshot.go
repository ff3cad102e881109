// Package snapshot persists component state across restarts
package snapshot

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/flowkit/errors"
	"github.com/c360/flowkit/eventbus"
	"github.com/c360/flowkit/statemachine"
	"github.com/c360/flowkit/storage"
)

// ownerName identifies the snapshot store's bus subscriptions.
const ownerName = "snapshot_store"

// Record is one persisted snapshot: the component's current leaf state and
// when it was captured.
type Record struct {
	State   string    `json:"state"`
	SavedAt time.Time `json:"saved_at"`
}

// Store persists component state through a storage backend. Attached to an
// event bus it captures every state.changed event; on restart Restore seeds
// machines from the last capture.
type Store struct {
	backend storage.Store
	logger  *slog.Logger
	handle  eventbus.Handle
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a snapshot store over a backend.
func New(backend storage.Store, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("storage backend is required"),
			"snapshot", "New", "backend validation")
	}
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Attach subscribes the store to state.changed events on the bus. Each
// successful transition overwrites the component's snapshot.
func (s *Store) Attach(bus *eventbus.Bus) error {
	handle, err := bus.Subscribe(statemachine.EventStateChanged, ownerName, s.capture)
	if err != nil {
		return errors.Wrap(err, "snapshot", "Attach", "subscribe to state changes")
	}
	s.handle = handle
	return nil
}

// Detach removes the store's bus subscription. Detaching an unattached
// store is a no-op.
func (s *Store) Detach(bus *eventbus.Bus) {
	if s.handle.Valid() {
		bus.Unsubscribe(s.handle)
		s.handle = eventbus.Handle{}
	}
}

// capture is the state.changed handler.
func (s *Store) capture(ctx context.Context, payload eventbus.Payload) error {
	name, _ := payload["component"].(string)
	state, _ := payload["toState"].(string)
	if name == "" || state == "" {
		// Transitions from unbound machines carry no component name;
		// nothing to persist.
		s.logger.DebugContext(ctx, "Skipping snapshot for anonymous transition")
		return nil
	}
	return s.Save(ctx, name, state)
}

// Save persists a snapshot for the named component.
func (s *Store) Save(ctx context.Context, component, state string) error {
	data, err := json.Marshal(Record{State: state, SavedAt: time.Now().UTC()})
	if err != nil {
		return errors.Wrap(err, "snapshot", "Save", "encode record")
	}
	if err := s.backend.Put(ctx, component, data); err != nil {
		return errors.Wrap(err, "snapshot", "Save", "persist record")
	}
	s.logger.DebugContext(ctx, "Saved snapshot", "component", component, "state", state)
	return nil
}

// Load returns the persisted snapshot for the named component. A missing
// snapshot reports errors.ErrKeyNotFound.
func (s *Store) Load(ctx context.Context, component string) (Record, error) {
	data, err := s.backend.Get(ctx, component)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.Wrap(err, "snapshot", "Load", "decode record")
	}
	return rec, nil
}

// Restore seeds a machine from the component's snapshot without running
// hooks or emitting events. A component with no snapshot is left at its
// initial state.
func (s *Store) Restore(ctx context.Context, component string, machine *statemachine.Machine) error {
	rec, err := s.Load(ctx, component)
	if err != nil {
		if stderrors.Is(err, errors.ErrKeyNotFound) {
			s.logger.DebugContext(ctx, "No snapshot to restore", "component", component)
			return nil
		}
		return err
	}
	if err := machine.Reset(rec.State); err != nil {
		return errors.Wrap(err, "snapshot", "Restore",
			fmt.Sprintf("reset %s to %s", component, rec.State))
	}
	s.logger.InfoContext(ctx, "Restored snapshot",
		"component", component, "state", rec.State, "saved_at", rec.SavedAt)
	return nil
}

// Components lists every component with a persisted snapshot.
func (s *Store) Components(ctx context.Context) ([]string, error) {
	return s.backend.List(ctx, "")
}

// Delete removes the named component's snapshot.
func (s *Store) Delete(ctx context.Context, component string) error {
	return s.backend.Delete(ctx, component)
}
