// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/ragclient/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown with YAML frontmatter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(log model.Log) ([]byte, error) {
	if len(log) == 0 {
		return nil, ErrEmptyLog
	}

	var sb strings.Builder
	title := e.options.title(log)

	if e.options.IncludeMetadata {
		first, last := span(log)
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
		fmt.Fprintf(&sb, "started: %s\n", first.Format("2006-01-02T15:04:05Z07:00"))
		fmt.Fprintf(&sb, "updated: %s\n", last.Format("2006-01-02T15:04:05Z07:00"))
		fmt.Fprintf(&sb, "exchanges: %d\n", log.Exchanges())
		fmt.Fprintf(&sb, "messages: %d\n", len(log))
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	for i, msg := range log {
		if i > 0 && msg.Role == model.RoleUser {
			sb.WriteString("---\n\n")
		}

		heading := e.formatRoleLabel(msg)
		if e.options.IncludeTimestamps {
			heading += " · " + formatTimestamp(msg.Timestamp)
		}
		fmt.Fprintf(&sb, "### %s\n\n", heading)

		text := strings.TrimSpace(msg.Text)
		if msg.IsError {
			text = "> " + strings.ReplaceAll(text, "\n", "\n> ")
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")

		if e.options.IncludeSources && len(msg.Sources) > 0 {
			sb.WriteString(e.formatSources(msg.Sources))
		}
		if stats := e.formatMessageStats(msg); stats != "" {
			sb.WriteString(stats)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "*Exported from ragclient on %s*\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func (e *MarkdownExporter) formatRoleLabel(msg model.Message) string {
	switch {
	case msg.IsError:
		return "[Error]"
	case msg.Role == model.RoleUser:
		return "[You]"
	case msg.Role == model.RoleAssistant:
		return "[Assistant]"
	default:
		return msg.Role.DisplayName()
	}
}

func (e *MarkdownExporter) formatSources(sources []model.Source) string {
	var sb strings.Builder
	sb.WriteString("<details>\n<summary>Sources</summary>\n\n")
	for _, src := range sources {
		label := src.Title
		if label == "" {
			label = src.Origin
		}
		fmt.Fprintf(&sb, "%d. **%s** (chunk %d)\n", src.Index, escapeMarkdown(label), src.ChunkIndex)
		excerpt := strings.TrimSpace(src.Text)
		if excerpt != "" {
			fmt.Fprintf(&sb, "   > %s\n", strings.ReplaceAll(excerpt, "\n", "\n   > "))
		}
	}
	sb.WriteString("\n</details>\n\n")
	return sb.String()
}

func (e *MarkdownExporter) formatMessageStats(msg model.Message) string {
	if msg.Metrics == nil {
		return ""
	}
	return fmt.Sprintf("<sub>Stats: %s</sub>", msg.Metrics.Format())
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
	)
	return r.Replace(s)
}

// escapeYAML quotes values that contain YAML special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
