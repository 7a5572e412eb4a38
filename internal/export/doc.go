// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the conversation log to shareable documents.
//
// # Supported Formats
//
//   - Markdown: YAML frontmatter, role headings, collapsible source lists
//   - HTML: standalone page with embedded CSS and linked [n] citations
//
// # Usage
//
//	exporter, err := export.ForPath("chat.html", export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	err = export.WriteFile(log, "chat.html", exporter)
package export
