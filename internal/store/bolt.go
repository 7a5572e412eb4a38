// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// =============================================================================
// BOLT STORE
// =============================================================================

var boltBucket = []byte("kv")

// BoltStore keeps keys in one bbolt bucket.
type BoltStore struct {
	db *bolt.DB

	mu     sync.RWMutex
	closed bool
}

// NewBoltStore opens or creates the bbolt file at path. It fails after one
// second if another process holds the file.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get implements Store.
func (s *BoltStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, &KeyError{Op: "get", Key: key, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, &KeyError{Op: "get", Key: key, Err: ErrClosed}
	}

	var value string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		// Bytes returned by Get are only valid inside the transaction.
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, &KeyError{Op: "get", Key: key, Err: err}
	}
	return value, found, nil
}

// Set implements Store.
func (s *BoltStore) Set(ctx context.Context, key, value string) error {
	return s.update(ctx, "set", key, func(b *bolt.Bucket) error {
		return b.Put([]byte(key), []byte(value))
	})
}

// Remove implements Store.
func (s *BoltStore) Remove(ctx context.Context, key string) error {
	return s.update(ctx, "remove", key, func(b *bolt.Bucket) error {
		return b.Delete([]byte(key))
	})
}

// Close implements Store.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BoltStore) update(ctx context.Context, op, key string, fn func(*bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return &KeyError{Op: op, Key: key, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &KeyError{Op: op, Key: key, Err: ErrClosed}
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(boltBucket))
	})
	if err != nil {
		return &KeyError{Op: op, Key: key, Err: err}
	}
	return nil
}
