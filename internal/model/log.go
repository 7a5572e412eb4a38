// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// CONVERSATION LOG
// =============================================================================

// ErrMalformedLog is returned by DecodeLog for data that is not a message list.
var ErrMalformedLog = errors.New("malformed conversation log")

// Log is the ordered conversation history. Order is chronological.
type Log []Message

// Encode serializes the log as a JSON array.
func (l Log) Encode() ([]byte, error) {
	if l == nil {
		l = Log{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to encode conversation log: %w", err)
	}
	return data, nil
}

// DecodeLog parses a JSON array of messages. Entries with an unknown role
// make the whole log malformed.
func DecodeLog(data []byte) (Log, error) {
	var l Log
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	for i, m := range l {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("%w: entry %d has role %q", ErrMalformedLog, i, m.Role)
		}
	}
	return l, nil
}

// Clone returns a deep copy of the log.
func (l Log) Clone() Log {
	if l == nil {
		return Log{}
	}
	out := make(Log, len(l))
	for i, m := range l {
		out[i] = m.Clone()
	}
	return out
}

// Repair restores the pairing invariant: every user message is followed by
// exactly one assistant message. A user message with no reply gets a
// synthesized error reply with errorText. Assistant messages without a
// preceding user message are kept; the backend never produces them, but
// dropping user data is worse. Returns the repaired log and whether anything
// changed.
func (l Log) Repair(errorText string, now time.Time) (Log, bool) {
	out := make(Log, 0, len(l))
	changed := false
	for i, m := range l {
		out = append(out, m)
		if m.Role != RoleUser {
			continue
		}
		if i+1 < len(l) && l[i+1].Role == RoleAssistant {
			continue
		}
		out = append(out, NewErrorMessage(errorText, now))
		changed = true
	}
	return out, changed
}

// Trim drops the oldest messages so at most max remain. Whole exchanges are
// dropped together so the result never starts with an orphaned reply.
// A max of zero or less means unbounded.
func (l Log) Trim(max int) Log {
	if max <= 0 || len(l) <= max {
		return l
	}
	start := len(l) - max
	for start < len(l) && l[start].Role != RoleUser {
		start++
	}
	return append(Log(nil), l[start:]...)
}

// Exchanges returns the number of user messages in the log.
func (l Log) Exchanges() int {
	n := 0
	for _, m := range l {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}
