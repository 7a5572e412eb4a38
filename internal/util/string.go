// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// UNICODE: Text typed on one platform and pasted on another may arrive in
// decomposed form. Normalizing to NFC keeps stored history and indexed content
// byte-stable across clients.

// Normalize returns s in Unicode NFC form with surrounding whitespace removed.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// IsBlank reports whether s contains only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// TruncateWidth truncates s to maxWidth terminal columns, appending "..." when
// anything was cut. Double-width runes count as two columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// TruncateRunes truncates s to maxRunes characters, appending "..." when cut.
// The result is never longer than maxRunes runes.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// StringWidth returns the display width of s in terminal columns.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Preview collapses all whitespace runs in s into single spaces.
func Preview(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fingerprint returns the first 8 hex characters of the SHA-256 of secret.
// Returns "none" for an empty secret.
func Fingerprint(secret string) string {
	if secret == "" {
		return "none"
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])[:8]
}
