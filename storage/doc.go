// Package storage provides the pluggable backend interface behind snapshot
// persistence.
//
// # Overview
//
// The Store interface is a minimal key-value contract: string keys, binary
// values, context-aware operations. The snapshot layer persists component
// state through it without caring where the bytes land:
//   - filestore.Store: flat files in a directory, atomic replace on write
//   - an in-memory implementation is a dozen lines for tests
//
// # Architecture Decisions
//
// The interface intentionally stays key-value rather than growing queries,
// transactions, or watch APIs. Snapshots are tiny JSON documents written on
// every state change; anything richer belongs in the backend or above it.
//
// Put must replace atomically. The snapshot layer writes on a live event
// stream, and a reader (or a crashed process restarting) must see either
// the old document or the new one, never a torn write.
//
// Missing keys are reported by wrapping errors.ErrKeyNotFound so callers
// can distinguish "no snapshot yet" from an I/O failure.
//
// # Thread Safety
//
// All Store implementations must be safe for concurrent use from multiple
// goroutines.
//
// # See Also
//
//   - storage/filestore: flat-file implementation
//   - storage/snapshot: the state.changed subscriber built on Store
package storage
