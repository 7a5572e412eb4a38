// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/ragclient/internal/citation"
	"github.com/jeranaias/ragclient/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

var (
	codeBlockRegex  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
)

// HTMLExporter exports conversations to a standalone HTML page with
// embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(log model.Log) ([]byte, error) {
	if len(log) == 0 {
		return nil, ErrEmptyLog
	}

	title := html.EscapeString(e.options.title(log))
	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", title)
	sb.WriteString("    <meta name=\"generator\" content=\"ragclient\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", log[0].Timestamp.Format(time.RFC3339))
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(log, title))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range log {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>ragclient</strong> on %s</p>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(log model.Log, title string) string {
	first, last := span(log)
	var sb strings.Builder
	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", title)
	sb.WriteString("            <div class=\"metadata\">\n")
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Started:</strong> %s</span>\n", formatTimestamp(first))
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Updated:</strong> %s</span>\n", formatTimestamp(last))
	fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Exchanges:</strong> %d</span>\n", log.Exchanges())
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg model.Message) string {
	class := string(msg.Role) + "-message"
	label := "[You]"
	if msg.Role == model.RoleAssistant {
		label = "[Assistant]"
	}
	if msg.IsError {
		class += " error-message"
		label = "[Error]"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "            <div class=\"message %s\" id=\"msg-%s\">\n", class, html.EscapeString(msg.ID))
	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role-label\">%s</span>\n", label)
	if e.options.IncludeTimestamps {
		fmt.Fprintf(&sb, "                    <span class=\"timestamp\">%s</span>\n", msg.Timestamp.Local().Format("15:04:05"))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(e.formatContent(msg))
	sb.WriteString("\n                </div>\n")

	if e.options.IncludeSources && len(msg.Sources) > 0 {
		sb.WriteString(e.renderSources(msg))
	}
	if msg.Metrics != nil {
		fmt.Fprintf(&sb, "                <div class=\"message-stats\">%s</div>\n", html.EscapeString(msg.Metrics.Format()))
	}

	sb.WriteString("            </div>\n")
	return sb.String()
}

func (e *HTMLExporter) renderSources(msg model.Message) string {
	var sb strings.Builder
	sb.WriteString("                <details class=\"sources\">\n")
	sb.WriteString("                    <summary>Sources</summary>\n")
	sb.WriteString("                    <ol>\n")
	for _, src := range msg.Sources {
		label := src.Title
		if label == "" {
			label = src.Origin
		}
		fmt.Fprintf(&sb, "                        <li value=\"%d\" id=\"%s\"><strong>%s</strong> <span class=\"chunk\">chunk %d</span><blockquote>%s</blockquote></li>\n",
			src.Index, anchor(msg.ID, src.Index), html.EscapeString(label), src.ChunkIndex, html.EscapeString(strings.TrimSpace(src.Text)))
	}
	sb.WriteString("                    </ol>\n")
	sb.WriteString("                </details>\n")
	return sb.String()
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

// formatContent escapes the text, renders fenced and inline code and turns
// [n] markers that resolve to a source into links.
func (e *HTMLExporter) formatContent(msg model.Message) string {
	content := html.EscapeString(strings.TrimSpace(msg.Text))

	var blocks []string
	content = codeBlockRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRegex.FindStringSubmatch(match)
		langLabel := ""
		if parts[1] != "" {
			langLabel = fmt.Sprintf("<div class=\"code-lang\">%s</div>", parts[1])
		}
		blocks = append(blocks, fmt.Sprintf("<div class=\"code-block\">%s<pre><code class=\"language-%s\">%s</code></pre></div>",
			langLabel, parts[1], strings.TrimRight(parts[2], "\n")))
		return fmt.Sprintf("\x00%d\x00", len(blocks)-1)
	})

	content = inlineCodeRegex.ReplaceAllString(content, "<code class=\"inline-code\">$1</code>")

	if e.options.IncludeSources && len(msg.Sources) > 0 {
		known := make(map[int]bool, len(msg.Sources))
		for _, src := range msg.Sources {
			known[src.Index] = true
		}
		content = citation.Render(content, func(n int) string {
			if !known[n] {
				return fmt.Sprintf("[%d]", n)
			}
			return fmt.Sprintf("<a class=\"cite\" href=\"#%s\">[%d]</a>", anchor(msg.ID, n), n)
		})
	}

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "\x00") && strings.HasSuffix(para, "\x00") {
			out = append(out, para)
			continue
		}
		out = append(out, "<p>"+strings.ReplaceAll(para, "\n", "<br>\n")+"</p>")
	}
	result := strings.Join(out, "\n")

	for i, block := range blocks {
		result = strings.Replace(result, fmt.Sprintf("\x00%d\x00", i), block, 1)
	}
	return result
}

func anchor(msgID string, index int) string {
	return fmt.Sprintf("src-%s-%d", html.EscapeString(msgID), index)
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const css = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-muted: #565f89;
            --user-bg: #1f2335;
            --code-bg: #1a1b26;
            --accent: #7aa2f7;
            --accent-red: #f7768e;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f7f8fa;
            --bg-tertiary: #e1e4e8;
            --text-primary: #24292e;
            --text-muted: #6a737d;
            --user-bg: #f6f8fa;
            --code-bg: #f6f8fa;
            --accent: #0366d6;
            --accent-red: #d73a49;
        }

        body {
            font-family: var(--font-sans);
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container { max-width: 900px; margin: 0 auto; background: var(--bg-secondary); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: var(--bg-tertiary); }
        .header h1 { font-size: 24px; margin-bottom: 12px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--text-muted); }
        .conversation { padding: 24px; }
        .message { padding: 16px 20px; margin-bottom: 16px; border-radius: 8px; border-left: 4px solid var(--accent); }
        .user-message { background: var(--user-bg); }
        .error-message { border-left-color: var(--accent-red); }
        .error-message .message-content { color: var(--accent-red); }
        .message-header { display: flex; justify-content: space-between; font-size: 13px; color: var(--text-muted); margin-bottom: 8px; }
        .role-label { font-weight: 600; }
        .message-content p { margin-bottom: 10px; }
        .code-block { margin: 12px 0; background: var(--code-bg); border-radius: 6px; overflow-x: auto; }
        .code-lang { font-size: 12px; padding: 4px 12px; color: var(--text-muted); }
        pre { padding: 12px; font-family: var(--font-mono); font-size: 14px; }
        .inline-code { font-family: var(--font-mono); background: var(--code-bg); padding: 1px 4px; border-radius: 3px; }
        a.cite { color: var(--accent); text-decoration: none; font-weight: 600; }
        .sources { margin-top: 8px; font-size: 14px; }
        .sources summary { cursor: pointer; color: var(--text-muted); }
        .sources li { margin: 8px 0 0 24px; }
        .sources blockquote { color: var(--text-muted); border-left: 2px solid var(--bg-tertiary); padding-left: 8px; white-space: pre-wrap; }
        .chunk { font-size: 12px; color: var(--text-muted); }
        .message-stats { margin-top: 8px; font-size: 12px; color: var(--text-muted); }
        .footer { padding: 16px 32px; font-size: 13px; color: var(--text-muted); text-align: center; }

        @media print {
            body { padding: 0; }
            .message { page-break-inside: avoid; }
        }
    </style>
`
