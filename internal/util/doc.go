// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the ragclient packages.
//
// # Key Functions
//
// Text:
//   - Normalize: NFC normalization and whitespace trimming for user input
//   - TruncateWidth: display-width aware truncation with ellipsis
//   - Preview: single-line preview of multi-line text
//   - Fingerprint: short, log-safe identifier for secrets
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	title := util.TruncateWidth(util.Preview(text), 50)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
