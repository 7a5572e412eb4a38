// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the conversation log.
//
// # Key Types
//
//   - Role: message role (user, assistant)
//   - Message: one turn with text, timestamp, optional metrics, sources and error flag
//   - Metrics: elapsed time, token count and cost estimate reported by the backend
//   - Source: a citation excerpt returned with an answer
//   - Log: ordered message sequence with JSON encoding and invariant repair
//
// # Usage
//
//	log := model.Log{model.NewUserMessage("What is RAG?", now)}
//	log = append(log, model.NewAnswerMessage(answer, metrics, sources, now))
//	data, err := log.Encode()
package model
