// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the persisted message log and reconciles
// optimistic user messages with query outcomes.
//
// Every submitted user message is followed by exactly one assistant message,
// either the answer or a fixed error reply. One query may be in flight at a
// time. Completions that arrive after Close or Clear are dropped.
package conversation
