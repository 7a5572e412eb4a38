// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Answer rendering shared by ask, chat and history.
//
// USABILITY: Markdown rendering for better CLI experience

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/ragclient/internal/citation"
	"github.com/jeranaias/ragclient/internal/config"
	"github.com/jeranaias/ragclient/internal/model"
	"github.com/jeranaias/ragclient/internal/util"
)

// excerptWidth bounds the source excerpt shown under an answer.
const excerptWidth = 100

// Renderer formats messages for the terminal according to the UI config.
type Renderer struct {
	ui       config.UIConfig
	markdown *glamour.TermRenderer
}

// NewRenderer creates a renderer. Markdown rendering silently falls back to
// plain text when glamour cannot be initialized or colors are off.
func NewRenderer(ui config.UIConfig, width int) *Renderer {
	r := &Renderer{ui: ui}
	if !ui.RenderMarkdown || !ColorsEnabled() {
		return r
	}

	style := glamour.WithAutoStyle()
	if ui.Theme == "dark" || ui.Theme == "light" {
		style = glamour.WithStandardStyle(ui.Theme)
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err == nil {
		r.markdown = md
	}
	return r
}

// Answer renders the body of an assistant message.
func (r *Renderer) Answer(msg model.Message) string {
	if msg.IsError {
		return RenderConditional(ErrorStyle, msg.Text)
	}

	text := msg.Text
	if r.ui.Citations == "strip" {
		text = citation.Strip(text)
	}

	if r.markdown != nil {
		if out, err := r.markdown.Render(text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}

	text = WrapText(text, GetTerminalWidth())
	if r.ui.Citations != "strip" {
		text = citation.Render(text, func(n int) string {
			return RenderConditional(CitationStyle, fmt.Sprintf("[%d]", n))
		})
	}
	return text
}

// Sources renders the numbered source list of an answer. Markers that were
// stripped from the text are not listed either.
func (r *Renderer) Sources(msg model.Message) string {
	if len(msg.Sources) == 0 || r.ui.Citations == "strip" {
		return ""
	}

	var b strings.Builder
	b.WriteString(RenderConditional(SectionStyle, "Sources"))
	b.WriteString("\n")
	for _, src := range msg.Sources {
		title := src.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "  %s %s %s\n",
			RenderConditional(CitationStyle, fmt.Sprintf("[%d]", src.Index)),
			title,
			RenderConditional(DimStyle, fmt.Sprintf("(%s, chunk %d)", src.Origin, src.ChunkIndex)))
		if excerpt := util.TruncateWidth(util.Preview(src.Text), excerptWidth); excerpt != "" {
			fmt.Fprintf(&b, "      %s\n", RenderConditional(DimStyle, excerpt))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Metrics renders the metrics footer, or "" when there are none.
func (r *Renderer) Metrics(msg model.Message) string {
	if msg.Metrics == nil {
		return ""
	}
	return RenderConditional(DimStyle, msg.Metrics.Format())
}

// Message renders a full log entry with its role label.
func (r *Renderer) Message(msg model.Message) string {
	if msg.Role == model.RoleUser {
		return RenderConditional(PromptStyle, msg.Role.DisplayName()+": ") + msg.Text
	}

	parts := []string{RenderConditional(SectionStyle, msg.Role.DisplayName()+":"), r.Answer(msg)}
	if s := r.Sources(msg); s != "" {
		parts = append(parts, s)
	}
	if m := r.Metrics(msg); m != "" {
		parts = append(parts, m)
	}
	return strings.Join(parts, "\n")
}

// WrapText wraps text to fit within maxWidth columns, keeping existing
// newlines.
func WrapText(text string, maxWidth int) string {
	if maxWidth > 10 {
		maxWidth -= 2
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}
		if util.StringWidth(line) <= maxWidth {
			result.WriteString(line)
			continue
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if util.StringWidth(current)+1+util.StringWidth(word) <= maxWidth {
				current += " " + word
			} else {
				result.WriteString(current)
				result.WriteString("\n")
				current = word
			}
		}
		result.WriteString(current)
	}
	return result.String()
}
