// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/ragclient/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps all keys in one JSON object file. Every write re-reads the
// file under an advisory lock so concurrent processes sharing the file do not
// lose each other's keys.
type FileStore struct {
	path     string
	lockPath string

	mu sync.Mutex
	// snapshot is the file content as last written or watched by this
	// process. The watcher diffs against it to find external changes.
	snapshot map[string]string
	closed   bool
}

// NewFileStore opens (or prepares) the store file at path.
func NewFileStore(path string) (*FileStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileStore{
		path:     absPath,
		lockPath: absPath + ".lock",
		snapshot: map[string]string{},
	}

	if values, err := s.read(); err == nil {
		s.snapshot = values
	} else if !errors.Is(err, ErrCorrupt) {
		return nil, err
	} else {
		log.Printf("STORE_CORRUPT | path=%s error=%v", absPath, err)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store. The file is re-read so writes from other processes
// are visible.
func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, &KeyError{Op: "get", Key: key, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, &KeyError{Op: "get", Key: key, Err: ErrClosed}
	}

	values, err := s.read()
	if err != nil {
		return "", false, &KeyError{Op: "get", Key: key, Err: err}
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set implements Store.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	return s.update(ctx, "set", key, func(values map[string]string) bool {
		if old, ok := values[key]; ok && old == value {
			return false
		}
		values[key] = value
		return true
	})
}

// Remove implements Store.
func (s *FileStore) Remove(ctx context.Context, key string) error {
	return s.update(ctx, "remove", key, func(values map[string]string) bool {
		if _, ok := values[key]; !ok {
			return false
		}
		delete(values, key)
		return true
	})
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// update runs a read-modify-write cycle under both the process mutex and the
// cross-process file lock. mutate reports whether it changed anything.
func (s *FileStore) update(ctx context.Context, op, key string, mutate func(map[string]string) bool) error {
	if err := ctx.Err(); err != nil {
		return &KeyError{Op: op, Key: key, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &KeyError{Op: op, Key: key, Err: ErrClosed}
	}

	err := withFileLock(s.lockPath, func() error {
		values, err := s.read()
		if errors.Is(err, ErrCorrupt) {
			// An unreadable file would otherwise block every future write.
			log.Printf("STORE_RESET | path=%s error=%v", s.path, err)
			values = map[string]string{}
		} else if err != nil {
			return err
		}

		if !mutate(values) {
			return nil
		}

		data, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode store: %w", err)
		}
		if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
			return err
		}
		// Only our own key is marked as seen; other keys changed by another
		// process since the last watch are still reported.
		if v, ok := values[key]; ok {
			s.snapshot[key] = v
		} else {
			delete(s.snapshot, key)
		}
		return nil
	})
	if err != nil {
		return &KeyError{Op: op, Key: key, Err: err}
	}
	return nil
}

// read loads the file. A missing file is an empty store.
func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return values, nil
}

// withFileLock holds an exclusive advisory lock on lockPath while fn runs.
func withFileLock(lockPath string, fn func() error) error {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	defer unlockFile(f)

	return fn()
}
