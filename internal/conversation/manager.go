// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/ragclient/internal/gateway"
	"github.com/jeranaias/ragclient/internal/model"
	"github.com/jeranaias/ragclient/internal/store"
	"github.com/jeranaias/ragclient/internal/util"
)

// HistoryKey is the store key holding the encoded log.
const HistoryKey = "chat_history"

// ErrorText is the body of the assistant message appended when a query fails.
const ErrorText = "Error fetching answer. Is the backend running?"

// Querier answers a question.
type Querier interface {
	Query(ctx context.Context, text string) (*gateway.QueryResult, error)
}

// Outcome reports what Submit did.
type Outcome int

const (
	// OutcomeRejected means the text was blank, a query was already pending
	// or the manager was closed. Nothing changed.
	OutcomeRejected Outcome = iota
	// OutcomeAnswered means an answer was appended.
	OutcomeAnswered
	// OutcomeFailed means the error reply was appended.
	OutcomeFailed
	// OutcomeDiscarded means the manager was closed or cleared while the
	// query was in flight and the result was dropped.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeAnswered:
		return "answered"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxMessages caps the log length. Zero means unbounded.
func WithMaxMessages(n int) Option {
	return func(m *Manager) { m.maxMessages = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the conversation log.
type Manager struct {
	store   store.Store
	querier Querier

	maxMessages int
	now         func() time.Time

	// writeMu orders store writes so a stale snapshot never lands after
	// a Clear.
	writeMu sync.Mutex

	mu         sync.Mutex
	log        model.Log
	pending    bool
	closed     bool
	generation uint64
	listeners  []func()
}

// NewManager creates a manager that persists to s and asks q.
func NewManager(s store.Store, q Querier, opts ...Option) *Manager {
	m := &Manager{
		store:   s,
		querier: q,
		now:     time.Now,
		log:     model.Log{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads the log from the store. A missing or unreadable log yields
// an empty conversation. A trailing unanswered user message from an
// interrupted session gets the error reply so every question has an answer.
// Restore is skipped while a query is in flight; the log in memory is newer.
func (m *Manager) Restore(ctx context.Context) {
	if m.Pending() {
		log.Printf("CONVERSATION_RESTORE_SKIPPED | reason=pending")
		return
	}
	restored := m.load(ctx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.pending {
		m.mu.Unlock()
		log.Printf("CONVERSATION_RESTORE_SKIPPED | reason=pending")
		return
	}
	repaired, changed := restored.Repair(ErrorText, m.now())
	m.log = repaired.Trim(m.maxMessages)
	m.pending = false
	m.generation++
	gen := m.generation
	snapshot := m.log.Clone()
	m.mu.Unlock()

	log.Printf("CONVERSATION_RESTORE | messages=%d repaired=%t", len(snapshot), changed)
	if changed {
		m.persist(ctx, snapshot, gen)
	}
	m.notify()
}

func (m *Manager) load(ctx context.Context) model.Log {
	value, found, err := m.store.Get(ctx, HistoryKey)
	if err != nil {
		log.Printf("CONVERSATION_RESTORE_ERROR | error=%v", err)
		return model.Log{}
	}
	if !found || value == "" {
		return model.Log{}
	}
	restored, err := model.DecodeLog([]byte(value))
	if err != nil {
		log.Printf("CONVERSATION_RESTORE_ERROR | error=%v", err)
		return model.Log{}
	}
	return restored
}

// Submit sends text as a question. Text is stored and sent as given; only
// the emptiness check ignores surrounding whitespace. The user message is
// appended before the query is made. The query runs without holding the lock; its outcome is
// appended, the pending marker cleared and the log persisted.
func (m *Manager) Submit(ctx context.Context, text string) Outcome {
	if util.IsBlank(text) {
		return OutcomeRejected
	}

	m.mu.Lock()
	if m.pending || m.closed {
		m.mu.Unlock()
		return OutcomeRejected
	}
	m.log = append(m.log, model.NewUserMessage(text, m.now()))
	m.pending = true
	gen := m.generation
	m.mu.Unlock()

	log.Printf("CONVERSATION_SUBMIT | chars=%d", len(text))
	m.notify()

	result, err := m.querier.Query(ctx, text)

	m.mu.Lock()
	if m.closed || m.generation != gen {
		m.mu.Unlock()
		log.Printf("CONVERSATION_DISCARD | reason=stale")
		return OutcomeDiscarded
	}

	var outcome Outcome
	if err != nil {
		log.Printf("CONVERSATION_QUERY_FAILED | error=%v", err)
		m.log = append(m.log, model.NewErrorMessage(ErrorText, m.now()))
		outcome = OutcomeFailed
	} else {
		m.log = append(m.log, model.NewAnswerMessage(result.Answer, result.Metrics, result.Sources, m.now()))
		outcome = OutcomeAnswered
	}
	m.pending = false
	m.log = m.log.Trim(m.maxMessages)
	snapshot := m.log.Clone()
	m.mu.Unlock()

	m.persist(ctx, snapshot, gen)
	m.notify()
	return outcome
}

// Clear empties the log and removes it from the store. A query in flight
// is dropped when it completes.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.log = model.Log{}
	m.pending = false
	m.generation++
	m.mu.Unlock()

	log.Printf("CONVERSATION_CLEAR")
	m.notify()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.store.Remove(ctx, HistoryKey)
}

// Close detaches the manager. Later completions are dropped and Submit
// is rejected.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.listeners = nil
	m.mu.Unlock()
}

// persist writes snapshot to the store unless the log was cleared or
// restored since gen. Failures are logged; the in-memory log remains
// authoritative.
func (m *Manager) persist(ctx context.Context, snapshot model.Log, gen uint64) {
	data, err := snapshot.Encode()
	if err != nil {
		log.Printf("CONVERSATION_PERSIST_ERROR | error=%v", err)
		return
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	stale := m.generation != gen
	m.mu.Unlock()
	if stale {
		return
	}

	// The outcome is settled, so a canceled request context does not skip the write.
	if err := m.store.Set(context.WithoutCancel(ctx), HistoryKey, string(data)); err != nil {
		log.Printf("CONVERSATION_PERSIST_ERROR | error=%v", err)
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns a copy of the log.
func (m *Manager) Messages() model.Log {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.Clone()
}

// Len returns the number of messages.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.log)
}

// Pending reports whether a query is in flight.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Subscribe registers fn to be called after every change to the log or the
// pending marker.
func (m *Manager) Subscribe(fn func()) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) notify() {
	m.mu.Lock()
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
