// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway performs the one-shot HTTP requests against the knowledge
// service and classifies every outcome into a sentinel error.
//
// The gateway holds no session state. Callers pass the credential token for
// each ingest request. Nothing is retried.
package gateway
