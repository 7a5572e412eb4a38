// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragclient/internal/gateway"
	"github.com/jeranaias/ragclient/internal/model"
	"github.com/jeranaias/ragclient/internal/store"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func fixedClock() time.Time { return t0 }

// stubQuerier returns a canned result. When gate is non-nil each call
// blocks until gate yields.
type stubQuerier struct {
	mu      sync.Mutex
	result  *gateway.QueryResult
	err     error
	gate    chan struct{}
	started chan struct{}
	calls   int
}

func (s *stubQuerier) Query(ctx context.Context, text string) (*gateway.QueryResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	return s.result, s.err
}

func ragAnswer() *gateway.QueryResult {
	return &gateway.QueryResult{
		Answer:  "It is retrieval [1]",
		Metrics: &model.Metrics{TimeSeconds: 0.5, Tokens: 42, CostEstimate: 0.002},
		Sources: []model.Source{{Text: "RAG combines retrieval", Title: "Intro", Origin: "UI", ChunkIndex: 0, Index: 1}},
	}
}

func newManager(t *testing.T, q Querier, opts ...Option) (*Manager, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	m := NewManager(s, q, opts...)
	m.Restore(context.Background())
	return m, s
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_Answered(t *testing.T) {
	ctx := context.Background()
	m, s := newManager(t, &stubQuerier{result: ragAnswer()})

	assert.Equal(t, OutcomeAnswered, m.Submit(ctx, "What is RAG?"))

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is RAG?", msgs[0].Text)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "It is retrieval [1]", msgs[1].Text)
	require.NotNil(t, msgs[1].Metrics)
	assert.Equal(t, 42, msgs[1].Metrics.Tokens)
	assert.Len(t, msgs[1].Sources, 1)
	assert.False(t, msgs[1].IsError)
	assert.False(t, m.Pending())

	// Persisted
	raw, found, err := s.Get(ctx, HistoryKey)
	require.NoError(t, err)
	require.True(t, found)
	stored, err := model.DecodeLog([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, msgs, stored)
}

func TestSubmit_Failed(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &stubQuerier{err: gateway.ErrServiceUnavailable})

	assert.Equal(t, OutcomeFailed, m.Submit(ctx, "hello"))

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, ErrorText, msgs[1].Text)
	assert.True(t, msgs[1].IsError)
	assert.False(t, m.Pending())
}

func TestSubmit_BlankRejected(t *testing.T) {
	q := &stubQuerier{result: ragAnswer()}
	m, _ := newManager(t, q)

	for _, text := range []string{"", "   ", "\n\t"} {
		assert.Equal(t, OutcomeRejected, m.Submit(context.Background(), text))
	}
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, q.calls)
}

func TestSubmit_OptimisticAppendAndPending(t *testing.T) {
	q := &stubQuerier{
		result:  ragAnswer(),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m, _ := newManager(t, q)

	done := make(chan Outcome, 1)
	go func() { done <- m.Submit(context.Background(), "first") }()
	<-q.started

	// The user message is visible before the query resolves.
	assert.True(t, m.Pending())
	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "first", msgs[0].Text)

	// A second submission is rejected while pending.
	assert.Equal(t, OutcomeRejected, m.Submit(context.Background(), "second"))
	assert.Equal(t, 1, m.Len())

	close(q.gate)
	assert.Equal(t, OutcomeAnswered, <-done)
	assert.False(t, m.Pending())
	assert.Equal(t, 2, m.Len())
}

func TestSubmit_KeepsTextAsGiven(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &stubQuerier{result: ragAnswer()})

	require.Equal(t, OutcomeAnswered, m.Submit(ctx, "  What is RAG?\n"))
	assert.Equal(t, "  What is RAG?\n", m.Messages()[0].Text)
}

func TestRestore_SkippedWhileQueryInFlight(t *testing.T) {
	ctx := context.Background()
	q := &stubQuerier{
		result:  ragAnswer(),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m, s := newManager(t, q)

	done := make(chan Outcome, 1)
	go func() { done <- m.Submit(ctx, "What is RAG?") }()
	<-q.started

	m.Restore(ctx)
	assert.True(t, m.Pending(), "pending survives a restore")
	require.Equal(t, 1, m.Len(), "optimistic message survives a restore")
	assert.Equal(t, OutcomeRejected, m.Submit(ctx, "second"))

	close(q.gate)
	assert.Equal(t, OutcomeAnswered, <-done)
	assert.Equal(t, 2, m.Len())
	assert.False(t, m.Pending())

	value, found, err := s.Get(ctx, HistoryKey)
	require.NoError(t, err)
	require.True(t, found)
	persisted, err := model.DecodeLog([]byte(value))
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestSubmit_DiscardedAfterClose(t *testing.T) {
	q := &stubQuerier{
		result:  ragAnswer(),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m, s := newManager(t, q)

	done := make(chan Outcome, 1)
	go func() { done <- m.Submit(context.Background(), "question") }()
	<-q.started

	m.Close()
	close(q.gate)

	assert.Equal(t, OutcomeDiscarded, <-done)
	assert.Equal(t, 1, m.Len(), "late completion must not touch the log")
	_, found, _ := s.Get(context.Background(), HistoryKey)
	assert.False(t, found, "nothing persisted")

	assert.Equal(t, OutcomeRejected, m.Submit(context.Background(), "again"))
}

func TestSubmit_DiscardedAfterClear(t *testing.T) {
	ctx := context.Background()
	q := &stubQuerier{
		result:  ragAnswer(),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m, s := newManager(t, q)

	done := make(chan Outcome, 1)
	go func() { done <- m.Submit(ctx, "question") }()
	<-q.started

	require.NoError(t, m.Clear(ctx))
	assert.False(t, m.Pending())
	close(q.gate)

	assert.Equal(t, OutcomeDiscarded, <-done)
	assert.Equal(t, 0, m.Len())
	_, found, _ := s.Get(ctx, HistoryKey)
	assert.False(t, found)
}

func TestSubmit_ExactlyOneReplyPerQuestion(t *testing.T) {
	ctx := context.Background()
	q := &stubQuerier{result: ragAnswer()}
	m, _ := newManager(t, q)

	for i := 0; i < 5; i++ {
		if i%2 == 0 {
			q.err = errors.New("down")
		} else {
			q.err = nil
		}
		m.Submit(ctx, "q")
	}

	msgs := m.Messages()
	require.Len(t, msgs, 10)
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, model.RoleUser, msgs[i].Role)
		assert.Equal(t, model.RoleAssistant, msgs[i+1].Role)
	}
}

func TestSubmit_Cap(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &stubQuerier{result: ragAnswer()}, WithMaxMessages(4))

	for _, q := range []string{"one", "two", "three"} {
		m.Submit(ctx, q)
	}

	msgs := m.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "two", msgs[0].Text)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "three", msgs[2].Text)
}

func TestSubmit_UnboundedByDefault(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, &stubQuerier{result: ragAnswer()})
	for i := 0; i < 30; i++ {
		m.Submit(ctx, "q")
	}
	assert.Equal(t, 60, m.Len())
}

// =============================================================================
// RESTORE
// =============================================================================

func TestRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	s1, err := store.NewFileStore(path)
	require.NoError(t, err)
	m1 := NewManager(s1, &stubQuerier{result: ragAnswer()}, WithClock(fixedClock))
	m1.Restore(ctx)
	m1.Submit(ctx, "What is RAG?")
	m1.Submit(ctx, "And chunking?")
	want := m1.Messages()

	s2, err := store.NewFileStore(path)
	require.NoError(t, err)
	m2 := NewManager(s2, &stubQuerier{}, WithClock(fixedClock))
	m2.Restore(ctx)
	assert.Equal(t, want, m2.Messages())
}

func TestRestore_MissingOrMalformed(t *testing.T) {
	ctx := context.Background()
	for name, raw := range map[string]string{
		"garbage":  "{not json",
		"object":   `{"role":"user"}`,
		"bad role": `[{"role":"system","text":"x"}]`,
		"empty":    "",
	} {
		t.Run(name, func(t *testing.T) {
			s := store.NewMemoryStore()
			require.NoError(t, s.Set(ctx, HistoryKey, raw))
			m := NewManager(s, &stubQuerier{})
			m.Restore(ctx)
			assert.Equal(t, 0, m.Len())
		})
	}
}

func TestRestore_RepairsDanglingQuestion(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	data, err := model.Log{model.NewUserMessage("unanswered", t0)}.Encode()
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, HistoryKey, string(data)))

	m := NewManager(s, &stubQuerier{}, WithClock(fixedClock))
	m.Restore(ctx)

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsError)
	assert.Equal(t, ErrorText, msgs[1].Text)

	raw, _, _ := s.Get(ctx, HistoryKey)
	stored, err := model.DecodeLog([]byte(raw))
	require.NoError(t, err)
	assert.Len(t, stored, 2, "repair is persisted")
}

// =============================================================================
// MISC
// =============================================================================

func TestMessages_ReturnsCopy(t *testing.T) {
	m, _ := newManager(t, &stubQuerier{result: ragAnswer()})
	m.Submit(context.Background(), "q")

	msgs := m.Messages()
	msgs[0].Text = "mutated"
	assert.Equal(t, "q", m.Messages()[0].Text)
}

func TestSubscribe(t *testing.T) {
	m, _ := newManager(t, &stubQuerier{result: ragAnswer()})
	calls := 0
	m.Subscribe(func() { calls++ })

	m.Submit(context.Background(), "q")
	assert.Equal(t, 2, calls, "once for the optimistic append, once for the reply")
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "answered", OutcomeAnswered.String())
	assert.Equal(t, "discarded", OutcomeDiscarded.String())
	assert.Equal(t, "unknown", Outcome(9).String())
}
