// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is a small local knowledge service for exercising the
// client end to end.
//
// Endpoints:
//   - POST /login  - exchange admin credentials for a bearer token
//   - POST /ingest - index text (admin token required)
//   - POST /query  - answer from the indexed text with [n] citations
//   - GET  /health - liveness check
//
// Retrieval uses an in-memory vector index with a deterministic local
// embedding. Answers are assembled from the best matching excerpts; there is
// no language model behind it.
package devserver
