// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation handles the inline [n] markers answers use to cite their
// sources. n is the 1-based position in the answer's source list. Indices
// are never checked against the list.
package citation

import (
	"regexp"
	"strconv"
	"strings"
)

var markerRE = regexp.MustCompile(`\[([1-9][0-9]*)\]`)

// spaceBeforePunct matches whitespace left before punctuation by Strip.
var spaceBeforePunct = regexp.MustCompile(`[ \t]+([.,;:!?])`)

// Render replaces every marker with fn(n).
func Render(text string, fn func(n int) string) string {
	return markerRE.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil {
			return m
		}
		return fn(n)
	})
}

// Strip removes every marker and tidies the spacing it leaves behind.
func Strip(text string) string {
	out := markerRE.ReplaceAllString(text, "")
	out = spaceBeforePunct.ReplaceAllString(out, "$1")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.Join(strings.FieldsFunc(line, func(r rune) bool { return r == ' ' }), " "), " ")
	}
	return strings.Join(lines, "\n")
}

// Referenced returns the distinct marker indices in order of first use.
func Referenced(text string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, m := range markerRE.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
