// Package filestore implements storage.Store on flat files in a directory
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c360/flowkit/errors"
)

// Store persists each key as one file under a root directory. Writes go
// through a temp file in the same directory followed by a rename, so a
// concurrent reader or a crashed process never observes a partial value.
type Store struct {
	mu   sync.Mutex
	root string
}

// New creates the root directory if needed and returns a store over it.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.WrapConfig(
			fmt.Errorf("root directory is required"),
			"filestore", "New", "path validation")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.WrapConfig(
			fmt.Errorf("create %s: %w", root, err),
			"filestore", "New", "create root directory")
	}
	return &Store{root: root}, nil
}

// Put writes data to the key's file atomically.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.root, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "filestore", "Put", "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "filestore", "Put", "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "filestore", "Put", "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "filestore", "Put", "close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "filestore", "Put", "replace file")
	}
	return nil
}

// Get reads the key's file.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(
				fmt.Errorf("%w: %q", errors.ErrKeyNotFound, key),
				"filestore", "Get", "read file")
		}
		return nil, errors.Wrap(err, "filestore", "Get", "read file")
	}
	return data, nil
}

// List returns all keys with the given prefix in lexicographic order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrap(err, "filestore", "List", "read root directory")
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the key's file; deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "filestore", "Delete", "remove file")
	}
	return nil
}

// path maps a key to its file, rejecting keys that would escape the root.
func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.HasPrefix(key, ".") {
		return "", errors.WrapConfig(
			fmt.Errorf("invalid key %q", key),
			"filestore", "path", "key validation")
	}
	return filepath.Join(s.root, key), nil
}
