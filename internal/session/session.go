// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jeranaias/ragclient/internal/auth"
	"github.com/jeranaias/ragclient/internal/config"
	"github.com/jeranaias/ragclient/internal/content"
	"github.com/jeranaias/ragclient/internal/conversation"
	"github.com/jeranaias/ragclient/internal/gateway"
	"github.com/jeranaias/ragclient/internal/guard"
	"github.com/jeranaias/ragclient/internal/store"
)

// =============================================================================
// SESSION
// =============================================================================

// Session bundles the state managers of one client instance.
type Session struct {
	Config       *config.Config
	Store        store.Store
	Gateway      *gateway.Client
	Auth         *auth.Manager
	Conversation *conversation.Manager
	Content      *content.Submitter

	cancelWatch context.CancelFunc
	closeOnce   sync.Once
}

// Open builds a session from cfg using the configured store backend.
// Managers are constructed but not restored; call Restore.
func Open(cfg *config.Config) (*Session, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.Backend, dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	return New(cfg, st), nil
}

// New builds a session around an already opened store.
func New(cfg *config.Config, st store.Store) *Session {
	gw := gateway.New(cfg.Backend.URL).
		WithTimeout(cfg.Backend.Timeout()).
		WithUserAgent(cfg.Backend.UserAgent)

	authMgr := auth.NewManager(st)
	return &Session{
		Config:       cfg,
		Store:        st,
		Gateway:      gw,
		Auth:         authMgr,
		Conversation: conversation.NewManager(st, gw, conversation.WithMaxMessages(cfg.Conversation.MaxMessages)),
		Content:      content.NewSubmitter(gw, authMgr, cfg.Content.Source, cfg.Content.BannerTTL()),
	}
}

// Restore loads persisted state into both managers.
func (s *Session) Restore(ctx context.Context) {
	s.Auth.Restore(ctx)
	s.Conversation.Restore(ctx)
}

// Watch follows changes another process makes to the shared store. It is
// a no-op for stores that cannot report changes. The watch stops at Close
// or when ctx ends. onChange, if non-nil, runs after state was refreshed.
func (s *Session) Watch(ctx context.Context, onChange func(key string)) error {
	w, ok := s.Store.(store.Watcher)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelWatch = cancel

	return w.Watch(ctx, func(c store.Change) {
		switch c.Key {
		case auth.TokenKey:
			s.Auth.Resync(ctx)
		case conversation.HistoryKey:
			// A reload while a query is in flight would drop its answer.
			if s.Conversation.Pending() {
				log.Printf("SESSION_WATCH | key=%s skipped=pending", c.Key)
				return
			}
			s.Conversation.Restore(ctx)
		default:
			return
		}
		log.Printf("SESSION_WATCH | key=%s removed=%t", c.Key, c.Removed)
		if onChange != nil {
			onChange(c.Key)
		}
	})
}

// Navigate applies the access guard to route for the current auth state.
func (s *Session) Navigate(route guard.Route) guard.Decision {
	return guard.Decide(s.Auth.IsAuthorized(), route)
}

// Close tears the session down. In-flight queries complete as no-ops.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancelWatch != nil {
			s.cancelWatch()
		}
		s.Conversation.Close()
		if cerr := s.Store.Close(); cerr != nil && !errors.Is(cerr, store.ErrClosed) {
			err = cerr
		}
	})
	return err
}
