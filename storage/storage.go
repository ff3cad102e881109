// Package storage provides pluggable backend interfaces for persistence.
package storage

import "context"

// Store is the pluggable key-value backend behind the snapshot layer.
//
// Keys are flat strings (component names, typically); values are binary
// data, JSON in practice. Operations are context-aware for cancellation
// and timeouts, and implementations must be safe for concurrent use.
//
// Example implementations:
//   - filestore.Store: flat files in a directory, atomic replace on write
//   - an in-memory store for tests
type Store interface {
	// Put stores data at the specified key, replacing any existing value.
	// The replacement must be atomic: readers never observe a torn write.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the value for the specified key.
	// Returns an error wrapping ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys matching the specified prefix, in
	// lexicographic order. An empty prefix lists every key.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the value at the specified key. Deleting an absent
	// key is not an error.
	Delete(ctx context.Context, key string) error
}
