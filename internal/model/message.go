// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/ragclient/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Metrics are the generation statistics the backend attaches to an answer.
type Metrics struct {
	TimeSeconds  float64 `json:"time_seconds" yaml:"time_seconds"`
	Tokens       int     `json:"tokens" yaml:"tokens"`
	CostEstimate float64 `json:"cost_estimate" yaml:"cost_estimate"`
}

// Format renders metrics as "0.50s | 42 tokens | $0.002000".
func (m Metrics) Format() string {
	return fmt.Sprintf("%.2fs | %d tokens | $%.6f", m.TimeSeconds, m.Tokens, m.CostEstimate)
}

// Source is one retrieved excerpt cited by an answer. Index is the 1-based
// position the answer's [n] markers refer to.
type Source struct {
	Text       string `json:"text" yaml:"text"`
	Title      string `json:"title" yaml:"title"`
	Origin     string `json:"source" yaml:"source"`
	ChunkIndex int    `json:"chunk_index" yaml:"chunk_index"`
	Index      int    `json:"index" yaml:"index"`
}

// Message is a single turn in the conversation log.
// Role is fixed at construction.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Text      string    `json:"text" yaml:"text"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	Metrics *Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Sources []Source `json:"sources,omitempty" yaml:"sources,omitempty"`
	IsError bool     `json:"is_error,omitempty" yaml:"is_error,omitempty"`
}

// NewUserMessage creates a user message stamped with now.
func NewUserMessage(text string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: stamp(now),
	}
}

// NewAnswerMessage creates an assistant message carrying a backend answer.
func NewAnswerMessage(text string, metrics *Metrics, sources []Source, now time.Time) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      text,
		Timestamp: stamp(now),
		Metrics:   metrics,
	}
	if len(sources) > 0 {
		msg.Sources = append([]Source(nil), sources...)
	}
	return msg
}

// NewErrorMessage creates an error-flagged assistant message.
func NewErrorMessage(text string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      text,
		Timestamp: stamp(now),
		IsError:   true,
	}
}

// Preview returns a single-line preview at most width columns wide.
func (m Message) Preview(width int) string {
	return util.TruncateWidth(util.Preview(m.Text), width)
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	c := m
	if m.Metrics != nil {
		metrics := *m.Metrics
		c.Metrics = &metrics
	}
	if m.Sources != nil {
		c.Sources = append([]Source(nil), m.Sources...)
	}
	return c
}

// stamp drops the monotonic reading and location so timestamps compare equal
// after a JSON round trip.
func stamp(t time.Time) time.Time {
	return t.Round(0).UTC()
}
