// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CONFORMANCE SUITE
// =============================================================================

// backendFactories builds a fresh store per backend rooted in dir.
func backendFactories() map[string]func(t *testing.T, dir string) Store {
	return map[string]func(t *testing.T, dir string) Store{
		BackendFile: func(t *testing.T, dir string) Store {
			s, err := NewFileStore(filepath.Join(dir, "state.json"))
			require.NoError(t, err)
			return s
		},
		BackendSQLite: func(t *testing.T, dir string) Store {
			s, err := NewSQLiteStore(filepath.Join(dir, "state.db"))
			require.NoError(t, err)
			return s
		},
		BackendBolt: func(t *testing.T, dir string) Store {
			s, err := NewBoltStore(filepath.Join(dir, "state.bolt"))
			require.NoError(t, err)
			return s
		},
		BackendMemory: func(t *testing.T, dir string) Store {
			return NewMemoryStore()
		},
	}
}

func TestStore_Conformance(t *testing.T) {
	for name, factory := range backendFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t, t.TempDir())
			defer s.Close()

			// Absent key
			_, found, err := s.Get(ctx, "admin_token")
			require.NoError(t, err)
			assert.False(t, found)

			// Set then get
			require.NoError(t, s.Set(ctx, "admin_token", "tok123"))
			v, found, err := s.Get(ctx, "admin_token")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "tok123", v)

			// Overwrite
			require.NoError(t, s.Set(ctx, "admin_token", "tok456"))
			v, _, _ = s.Get(ctx, "admin_token")
			assert.Equal(t, "tok456", v)

			// Keys are independent
			require.NoError(t, s.Set(ctx, "chat_history", `[]`))
			require.NoError(t, s.Remove(ctx, "admin_token"))
			_, found, _ = s.Get(ctx, "admin_token")
			assert.False(t, found)
			v, found, _ = s.Get(ctx, "chat_history")
			assert.True(t, found)
			assert.Equal(t, `[]`, v)

			// Removing an absent key is fine
			require.NoError(t, s.Remove(ctx, "admin_token"))

			// Empty string is a value, not absence
			require.NoError(t, s.Set(ctx, "empty", ""))
			v, found, _ = s.Get(ctx, "empty")
			assert.True(t, found)
			assert.Equal(t, "", v)

			// Closed store
			require.NoError(t, s.Close())
			_, _, err = s.Get(ctx, "chat_history")
			assert.True(t, errors.Is(err, ErrClosed), "got %v", err)
			assert.True(t, errors.Is(s.Set(ctx, "k", "v"), ErrClosed))
		})
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	for name, factory := range backendFactories() {
		if name == BackendMemory {
			continue
		}
		factory := factory
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			s1 := factory(t, dir)
			require.NoError(t, s1.Set(ctx, "chat_history", `[{"role":"user"}]`))
			require.NoError(t, s1.Close())

			s2 := factory(t, dir)
			defer s2.Close()
			v, found, err := s2.Get(ctx, "chat_history")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, `[{"role":"user"}]`, v)
		})
	}
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	_, _, err := s.Get(ctx, "k")
	assert.True(t, errors.Is(err, context.Canceled))
}

// =============================================================================
// OPEN TESTS
// =============================================================================

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range Backends() {
		s, err := Open(backend, filepath.Join(dir, backend))
		require.NoError(t, err, backend)
		require.NoError(t, s.Close())
	}

	_, err := Open("redis", dir)
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestOpen_DefaultIsFile(t *testing.T) {
	s, err := Open("", t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*FileStore)
	assert.True(t, ok)
}

// =============================================================================
// FILE STORE TESTS
// =============================================================================

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	s, err := NewFileStore(path)
	require.NoError(t, err, "corrupt file must not block opening")

	_, _, err = s.Get(ctx, "chat_history")
	assert.True(t, errors.Is(err, ErrCorrupt))

	// A write replaces the corrupt content.
	require.NoError(t, s.Set(ctx, "admin_token", "tok"))
	v, found, err := s.Get(ctx, "admin_token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok", v)
}

func TestFileStore_TwoInstancesShareKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	a, err := NewFileStore(path)
	require.NoError(t, err)
	b, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, "admin_token", "tok"))
	require.NoError(t, b.Set(ctx, "chat_history", "[]"))

	// b's write must not drop a's key.
	v, found, err := a.Get(ctx, "admin_token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok", v)

	v, found, _ = a.Get(ctx, "chat_history")
	assert.True(t, found)
	assert.Equal(t, "[]", v)
}

func TestFileStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			if err := s.Set(ctx, key, key); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		key := string(rune('a' + i))
		v, found, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found, key)
		assert.Equal(t, key, v)
	}
}

func TestFileStore_WatchReportsExternalChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	path := filepath.Join(t.TempDir(), "state.json")

	watched, err := NewFileStore(path)
	require.NoError(t, err)
	other, err := NewFileStore(path)
	require.NoError(t, err)

	changes := make(chan Change, 10)
	require.NoError(t, watched.Watch(ctx, func(c Change) { changes <- c }))

	require.NoError(t, other.Set(context.Background(), "admin_token", "tok"))

	select {
	case c := <-changes:
		assert.Equal(t, "admin_token", c.Key)
		assert.Equal(t, "tok", c.Value)
		assert.False(t, c.Removed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	require.NoError(t, other.Remove(context.Background(), "admin_token"))

	select {
	case c := <-changes:
		assert.Equal(t, "admin_token", c.Key)
		assert.True(t, c.Removed)
	case <-time.After(5 * time.Second):
		t.Fatal("no removal reported")
	}
}

func TestFileStore_WatchIgnoresOwnWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	changes := make(chan Change, 10)
	require.NoError(t, s.Watch(ctx, func(c Change) { changes <- c }))

	require.NoError(t, s.Set(context.Background(), "admin_token", "tok"))

	select {
	case c := <-changes:
		t.Fatalf("own write reported: %+v", c)
	case <-time.After(300 * time.Millisecond):
	}
}
