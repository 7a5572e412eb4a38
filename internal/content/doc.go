// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package content submits new knowledge to the service on behalf of an
// authorized user and keeps a short-lived status banner for the result.
package content
