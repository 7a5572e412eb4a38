// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragclient/internal/store"
)

// failingStore fails every operation with err.
type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingStore) Set(context.Context, string, string) error        { return f.err }
func (f failingStore) Remove(context.Context, string) error             { return f.err }
func (f failingStore) Close() error                                     { return nil }

type stubLogin struct {
	token string
	err   error
	calls int
}

func (s *stubLogin) Login(ctx context.Context, username, password string) (string, error) {
	s.calls++
	return s.token, s.err
}

func TestManager_LoadingUntilRestore(t *testing.T) {
	m := NewManager(store.NewMemoryStore())
	assert.Equal(t, StatusLoading, m.Status())
	assert.False(t, m.IsAuthorized())

	m.Restore(context.Background())
	assert.Equal(t, StatusAbsent, m.Status())
}

func TestManager_LoginPersists(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	m := NewManager(s)
	m.Restore(ctx)

	require.NoError(t, m.Login(ctx, "tok123"))
	assert.True(t, m.IsAuthorized())
	assert.Equal(t, StatusAuthorized, m.Status())
	assert.Equal(t, "tok123", m.Token())

	v, found, err := s.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok123", v)
}

func TestManager_LoginPersistsAfterCancel(t *testing.T) {
	s := store.NewMemoryStore()
	m := NewManager(s)
	m.Restore(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Login(ctx, "tok123"))

	v, found, err := s.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.True(t, found, "token written despite canceled caller")
	assert.Equal(t, "tok123", v)
}

func TestManager_LoginEmptyRejected(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore())
	m.Restore(ctx)

	err := m.Login(ctx, "   ")
	assert.True(t, errors.Is(err, ErrEmptyToken))
	assert.False(t, m.IsAuthorized())
}

func TestManager_RestoreAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	s1, err := store.NewFileStore(path)
	require.NoError(t, err)
	m1 := NewManager(s1)
	m1.Restore(ctx)
	require.NoError(t, m1.Login(ctx, "tok123"))

	s2, err := store.NewFileStore(path)
	require.NoError(t, err)
	m2 := NewManager(s2)
	m2.Restore(ctx)
	assert.True(t, m2.IsAuthorized())
	assert.Equal(t, "tok123", m2.Token())
}

func TestManager_LogoutIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	m := NewManager(s)
	m.Restore(ctx)
	require.NoError(t, m.Login(ctx, "tok"))

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.IsAuthorized())
	_, found, _ := s.Get(ctx, TokenKey)
	assert.False(t, found)

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, StatusAbsent, m.Status())
}

func TestManager_RestoreReadErrorIsAbsent(t *testing.T) {
	m := NewManager(failingStore{err: errors.New("disk gone")})
	m.Restore(context.Background())
	assert.Equal(t, StatusAbsent, m.Status())
}

func TestManager_LoginWriteFailureKeepsToken(t *testing.T) {
	ctx := context.Background()
	m := NewManager(failingStore{err: errors.New("read-only")})
	m.Restore(ctx)

	err := m.Login(ctx, "tok")
	assert.Error(t, err)
	assert.True(t, m.IsAuthorized())
}

func TestManager_Resync(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	m := NewManager(s)
	m.Restore(ctx)

	var seen []Status
	m.Subscribe(func(st Status) { seen = append(seen, st) })

	require.NoError(t, s.Set(ctx, TokenKey, "other"))
	m.Resync(ctx)
	assert.Equal(t, "other", m.Token())

	// No change, no notification.
	m.Resync(ctx)

	require.NoError(t, s.Remove(ctx, TokenKey))
	m.Resync(ctx)
	assert.False(t, m.IsAuthorized())

	assert.Equal(t, []Status{StatusAuthorized, StatusAbsent}, seen)
}

func TestManager_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		m := NewManager(store.NewMemoryStore())
		m.Restore(ctx)
		client := &stubLogin{token: "tok123"}

		require.NoError(t, m.Authenticate(ctx, client, "a@b.com", "x"))
		assert.Equal(t, "tok123", m.Token())
		assert.Equal(t, 1, client.calls)
	})

	t.Run("failure leaves state", func(t *testing.T) {
		m := NewManager(store.NewMemoryStore())
		m.Restore(ctx)
		bad := errors.New("invalid credentials")
		client := &stubLogin{err: bad}

		err := m.Authenticate(ctx, client, "a@b.com", "wrong")
		assert.True(t, errors.Is(err, bad))
		assert.False(t, m.IsAuthorized())
	})
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "absent", StatusAbsent.String())
	assert.Equal(t, "authorized", StatusAuthorized.String())
	assert.Equal(t, "unknown", Status(42).String())
}
