// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/ragclient/internal/content"
	"github.com/jeranaias/ragclient/internal/conversation"
)

// =============================================================================
// REQUEST RESULTS
// =============================================================================

// AnswerMsg carries the outcome of a submitted question.
type AnswerMsg struct {
	Outcome conversation.Outcome
}

// IngestMsg carries the result of a content submission.
type IngestMsg struct {
	Result content.Result
}

// LoginMsg carries the result of a sign-in attempt. Err is user-facing.
type LoginMsg struct {
	Username string
	Err      error
}

// HealthMsg reports whether the backend answered its health check.
type HealthMsg struct {
	Err error
}

// ExportMsg carries the result of a conversation export.
type ExportMsg struct {
	Path string
	Err  error
}

// =============================================================================
// STATE CHANGES
// =============================================================================

// ConversationChangedMsg is sent when the conversation log changed,
// including the optimistic append of a question.
type ConversationChangedMsg struct{}

// AuthChangedMsg is sent when the authorization status changed.
type AuthChangedMsg struct{}

// StoreChangedMsg is sent when another process changed a stored key.
type StoreChangedMsg struct {
	Key string
}

// BannerTickMsg re-evaluates banner expiry.
type BannerTickMsg struct {
	At time.Time
}

// RestoredMsg is sent once persisted state has been loaded.
type RestoredMsg struct{}
