// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessages(t *testing.T) {
	u := NewUserMessage("What is RAG?", t0)
	assert.Equal(t, RoleUser, u.Role)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.IsError)

	metrics := &Metrics{TimeSeconds: 0.5, Tokens: 42, CostEstimate: 0.002}
	a := NewAnswerMessage("It is retrieval [1]", metrics, []Source{{Text: "x", Index: 1}}, t0)
	assert.Equal(t, RoleAssistant, a.Role)
	assert.Equal(t, metrics, a.Metrics)
	assert.Len(t, a.Sources, 1)

	e := NewErrorMessage("boom", t0)
	assert.True(t, e.IsError)
	assert.Equal(t, RoleAssistant, e.Role)
	assert.NotEqual(t, u.ID, e.ID)
}

func TestMessage_TimestampStripsMonotonic(t *testing.T) {
	m := NewUserMessage("hi", time.Now())
	data, err := Log{m}.Encode()
	require.NoError(t, err)

	restored, err := DecodeLog(data)
	require.NoError(t, err)
	assert.Equal(t, m, restored[0])
}

func TestMessage_Clone(t *testing.T) {
	orig := NewAnswerMessage("a", &Metrics{Tokens: 1}, []Source{{Title: "t"}}, t0)
	c := orig.Clone()
	c.Metrics.Tokens = 99
	c.Sources[0].Title = "changed"

	assert.Equal(t, 1, orig.Metrics.Tokens)
	assert.Equal(t, "t", orig.Sources[0].Title)
}

func TestMetrics_Format(t *testing.T) {
	m := Metrics{TimeSeconds: 0.5, Tokens: 42, CostEstimate: 0.002}
	assert.Equal(t, "0.50s | 42 tokens | $0.002000", m.Format())
}

// =============================================================================
// LOG TESTS
// =============================================================================

func TestLog_RoundTrip(t *testing.T) {
	log := Log{
		NewUserMessage("What is RAG?", t0),
		NewAnswerMessage("It is retrieval [1]",
			&Metrics{TimeSeconds: 0.5, Tokens: 42, CostEstimate: 0.002},
			[]Source{{Text: "excerpt", Title: "Doc", Origin: "paste", ChunkIndex: 0, Index: 1}},
			t0.Add(time.Second)),
		NewUserMessage("hello", t0.Add(2*time.Second)),
		NewErrorMessage("Error fetching answer. Is the backend running?", t0.Add(3*time.Second)),
	}

	data, err := log.Encode()
	require.NoError(t, err)

	restored, err := DecodeLog(data)
	require.NoError(t, err)
	assert.Equal(t, log, restored)
}

func TestLog_EncodeNil(t *testing.T) {
	var log Log
	data, err := log.Encode()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDecodeLog_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{{{"},
		{"object", `{"role":"user"}`},
		{"bad role", `[{"role":"system","text":"x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLog([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedLog))
		})
	}
}

func TestLog_Repair(t *testing.T) {
	log := Log{
		NewUserMessage("one", t0),
		NewAnswerMessage("a1", nil, nil, t0),
		NewUserMessage("two", t0),
	}

	repaired, changed := log.Repair("failed", t0)
	assert.True(t, changed)
	require.Len(t, repaired, 4)
	assert.Equal(t, RoleAssistant, repaired[3].Role)
	assert.True(t, repaired[3].IsError)
	assert.Equal(t, "failed", repaired[3].Text)

	_, changed = repaired.Repair("failed", t0)
	assert.False(t, changed)
}

func TestLog_Trim(t *testing.T) {
	var log Log
	for i := 0; i < 5; i++ {
		log = append(log, NewUserMessage("q", t0), NewAnswerMessage("a", nil, nil, t0))
	}

	assert.Len(t, log.Trim(0), 10, "zero means unbounded")
	assert.Len(t, log.Trim(20), 10)

	trimmed := log.Trim(4)
	require.Len(t, trimmed, 4)
	assert.Equal(t, RoleUser, trimmed[0].Role)

	// Odd cap drops the orphaned reply too.
	trimmed = log.Trim(3)
	require.Len(t, trimmed, 2)
	assert.Equal(t, RoleUser, trimmed[0].Role)
	assert.Equal(t, log[9].ID, trimmed[1].ID)
}

func TestLog_Exchanges(t *testing.T) {
	log := Log{NewUserMessage("q", t0), NewAnswerMessage("a", nil, nil, t0), NewUserMessage("q2", t0)}
	assert.Equal(t, 2, log.Exchanges())
}
