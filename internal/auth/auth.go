// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/ragclient/internal/store"
	"github.com/jeranaias/ragclient/internal/util"
)

// TokenKey is the store key holding the credential token.
const TokenKey = "admin_token"

// ErrEmptyToken is returned by Login when given an empty token.
var ErrEmptyToken = errors.New("empty credential token")

// =============================================================================
// STATUS
// =============================================================================

// Status is the authorization state of the session.
type Status int

const (
	// StatusLoading means Restore has not completed yet.
	StatusLoading Status = iota
	// StatusAbsent means no token is held.
	StatusAbsent
	// StatusAuthorized means a non-empty token is held.
	StatusAuthorized
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAbsent:
		return "absent"
	case StatusAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// LoginClient exchanges credentials for a token.
type LoginClient interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the credential token.
type Manager struct {
	store store.Store

	mu        sync.RWMutex
	token     string
	restored  bool
	listeners []func(Status)
}

// NewManager creates a manager backed by s. The manager starts in
// StatusLoading until Restore is called.
func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

// Restore loads the token from the store. A read failure leaves the manager
// unauthorized; it is logged rather than returned.
func (m *Manager) Restore(ctx context.Context) {
	token := m.read(ctx)

	m.mu.Lock()
	m.token = token
	m.restored = true
	status := m.statusLocked()
	m.mu.Unlock()

	log.Printf("AUTH_RESTORE | status=%s token=%s", status, util.Fingerprint(token))
	m.notify(status)
}

// Resync re-reads the token from the store. It is used when another process
// sharing the store logged in or out.
func (m *Manager) Resync(ctx context.Context) {
	token := m.read(ctx)

	m.mu.Lock()
	changed := !m.restored || token != m.token
	m.token = token
	m.restored = true
	status := m.statusLocked()
	m.mu.Unlock()

	if changed {
		log.Printf("AUTH_RESYNC | status=%s", status)
		m.notify(status)
	}
}

func (m *Manager) read(ctx context.Context) string {
	value, found, err := m.store.Get(ctx, TokenKey)
	if err != nil {
		log.Printf("AUTH_RESTORE_ERROR | error=%v", err)
		return ""
	}
	if !found {
		return ""
	}
	return strings.TrimSpace(value)
}

// Login records token as the current credential and persists it. The
// in-memory token is set even when the write fails; the write error is
// returned so the caller can report it.
func (m *Manager) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	m.token = token
	m.restored = true
	m.mu.Unlock()

	log.Printf("AUTH_LOGIN | status=%s token=%s", StatusAuthorized, util.Fingerprint(token))
	m.notify(StatusAuthorized)

	// The sign-in already succeeded, so a canceled caller does not skip the write.
	if err := m.store.Set(context.WithoutCancel(ctx), TokenKey, token); err != nil {
		log.Printf("AUTH_PERSIST_ERROR | error=%v", err)
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// Logout clears the token and removes it from the store. Calling Logout
// while already logged out is harmless.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	had := m.token != ""
	m.token = ""
	m.restored = true
	m.mu.Unlock()

	if had {
		log.Printf("AUTH_LOGOUT | status=%s", StatusAbsent)
	}
	m.notify(StatusAbsent)

	if err := m.store.Remove(ctx, TokenKey); err != nil {
		log.Printf("AUTH_PERSIST_ERROR | error=%v", err)
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// Authenticate exchanges credentials through client and logs in with the
// returned token. The client's error is returned unchanged on failure.
func (m *Manager) Authenticate(ctx context.Context, client LoginClient, username, password string) error {
	token, err := client.Login(ctx, username, password)
	if err != nil {
		log.Printf("AUTH_LOGIN_FAILED | user=%s error=%v", username, err)
		return err
	}
	return m.Login(ctx, token)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// IsAuthorized reports whether a non-empty token is held.
func (m *Manager) IsAuthorized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

// Token returns the current token, or "" when absent.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Status returns the current status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	switch {
	case !m.restored:
		return StatusLoading
	case m.token != "":
		return StatusAuthorized
	default:
		return StatusAbsent
	}
}

// Subscribe registers fn to be called with the new status after every
// change. fn runs on the goroutine that made the change.
func (m *Manager) Subscribe(fn func(Status)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) notify(s Status) {
	m.mu.RLock()
	listeners := append(([]func(Status))(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(s)
	}
}
