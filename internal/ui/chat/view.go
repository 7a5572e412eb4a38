// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragclient/internal/auth"
	"github.com/jeranaias/ragclient/internal/citation"
	"github.com/jeranaias/ragclient/internal/content"
	"github.com/jeranaias/ragclient/internal/model"
	"github.com/jeranaias/ragclient/internal/ui/styles"
	"github.com/jeranaias/ragclient/internal/util"
)

const sourceExcerptWidth = 100

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) render() string {
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch m.screen {
	case ScreenLogin:
		body = m.renderLogin()
	case ScreenAdd:
		body = m.renderAdd()
	default:
		body = m.viewport.View() + "\n" + m.renderInput()
	}

	parts := []string{m.renderHeader(), body, m.renderStatusBar()}
	if m.showHelp {
		parts = append(parts, m.renderHelp())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	t := m.theme
	left := t.HeaderBrand.Render("ragclient") + " " + t.SourceMeta.Render(m.sess.Gateway.BaseURL())

	var backend string
	switch m.backend {
	case backendOnline:
		backend = t.Online.Render(styles.StatusIndicators.Active + " online")
	case backendOffline:
		backend = t.Offline.Render(styles.StatusIndicators.Error + " offline")
	default:
		backend = t.SourceMeta.Render(styles.StatusIndicators.Pending + " checking")
	}

	var who string
	switch m.sess.Auth.Status() {
	case auth.StatusLoading:
		who = t.Pending.Render("loading...")
	case auth.StatusAuthorized:
		who = t.Online.Render("admin")
	default:
		who = t.SourceMeta.Render("guest")
	}

	right := backend + "  " + who
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return t.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	t := m.theme
	var line string

	if b, ok := m.sess.Content.Banner(m.now()); ok {
		if b.Kind == content.BannerSuccess {
			line = t.SuccessBanner.Render(styles.StatusIndicators.Success + " " + b.Text)
		} else {
			line = t.ErrorBanner.Render(styles.StatusIndicators.Error + " " + b.Text)
		}
	} else if m.notice != "" {
		if m.noticeErr {
			line = t.ErrorBanner.Render(styles.StatusIndicators.Warning + " " + m.notice)
		} else {
			line = t.InfoBanner.Render(styles.StatusIndicators.Info + " " + m.notice)
		}
	} else if t.GetLayoutMode() != styles.LayoutNarrow {
		line = m.help.ShortHelpView(m.keys.ShortHelp())
	}

	return t.StatusBar.Width(m.width).Render(line)
}

func (m Model) renderHelp() string {
	t := m.theme
	var b strings.Builder
	for _, c := range slashCommands {
		fmt.Fprintf(&b, "%s %s  %s\n",
			t.ShortcutKey.Render(c.Name),
			t.ShortcutDsc.Render(c.Args),
			c.Desc)
	}
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	return t.HelpBox.Render(b.String())
}

// =============================================================================
// CONVERSATION
// =============================================================================

func (m Model) renderConversation() string {
	log := m.sess.Conversation.Messages()
	if len(log) == 0 && !m.sess.Conversation.Pending() {
		return m.renderWelcome()
	}

	var b strings.Builder
	for _, msg := range log {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n\n")
	}
	if m.sess.Conversation.Pending() {
		b.WriteString(m.theme.Pending.Render(m.spinner.View() + " Searching the knowledge base..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderWelcome() string {
	t := m.theme
	lines := []string{
		t.HeaderBrand.Render("Ask the knowledge base"),
		"",
		t.SourceMeta.Render("Type a question and press Enter."),
		t.SourceMeta.Render("Administrators can add content with /add or Ctrl+A."),
	}
	if !m.restored {
		lines = append(lines, "", t.Pending.Render(m.spinner.View()+" Restoring session..."))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMessage(msg model.Message) string {
	t := m.theme
	stamp := t.Timestamp.Render(msg.Timestamp.Local().Format("15:04"))

	if msg.Role == model.RoleUser {
		return t.UserLabel.Render(msg.Role.DisplayName()) + " " + stamp + "\n" + t.UserText.Render(msg.Text)
	}

	head := t.AssistantLabel.Render(msg.Role.DisplayName()) + " " + stamp
	if msg.IsError {
		return head + "\n" + t.ErrorText.Render(msg.Text)
	}

	parts := []string{head, t.AssistantText.Render(m.renderAnswer(msg.Text))}
	if s := m.renderSources(msg.Sources); s != "" {
		parts = append(parts, s)
	}
	if msg.Metrics != nil {
		parts = append(parts, t.Metrics.Render(msg.Metrics.Format()))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderAnswer(text string) string {
	strip := m.sess.Config.UI.Citations == "strip"
	if strip {
		text = citation.Strip(text)
	}
	if m.markdown != nil {
		if out, err := m.markdown.Render(text); err == nil {
			text = strings.Trim(out, "\n")
		}
	} else {
		text = lipgloss.NewStyle().Width(max(m.width-6, 20)).Render(text)
	}
	if strip {
		return text
	}
	return citation.Render(text, func(n int) string {
		return m.theme.Citation.Render(fmt.Sprintf("[%d]", n))
	})
}

func (m Model) renderSources(sources []model.Source) string {
	if len(sources) == 0 || m.sess.Config.UI.Citations == "strip" {
		return ""
	}
	t := m.theme
	lines := []string{t.SourceMeta.Render("Sources")}
	for _, src := range sources {
		title := src.Title
		if title == "" {
			title = "(untitled)"
		}
		lines = append(lines, fmt.Sprintf("  %s %s %s",
			t.Citation.Render(fmt.Sprintf("[%d]", src.Index)),
			t.SourceTitle.Render(title),
			t.SourceMeta.Render(fmt.Sprintf("(%s, chunk %d)", src.Origin, src.ChunkIndex))))
		if excerpt := util.TruncateWidth(util.Preview(src.Text), sourceExcerptWidth); excerpt != "" {
			lines = append(lines, "      "+t.SourceMeta.Render(excerpt))
		}
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// FORMS
// =============================================================================

func (m Model) renderLogin() string {
	t := m.theme
	status := t.FormHint.Render("Enter to continue, Tab to switch fields, Esc to go back.")
	if m.signingIn {
		status = t.Pending.Render(m.spinner.View() + " Signing in...")
	}
	form := lipgloss.JoinVertical(lipgloss.Left,
		t.FormTitle.Render("Administrator sign-in"),
		t.FormLabel.Render("Username")+m.login.username.View(),
		t.FormLabel.Render("Password")+m.login.password.View(),
		"",
		status,
	)
	return m.center(t.FormBox.Render(form))
}

func (m Model) renderAdd() string {
	t := m.theme
	status := t.FormHint.Render("Ctrl+S to submit, Tab to switch fields, Esc to go back.")
	if m.sess.Content.Pending() {
		status = t.Pending.Render(m.spinner.View() + " Adding content...")
	}
	form := lipgloss.JoinVertical(lipgloss.Left,
		t.FormTitle.Render("Add to the knowledge base"),
		t.FormLabel.Render("Title")+m.add.title.View(),
		"",
		m.add.body.View(),
		"",
		status,
	)
	return m.center(t.FormBox.Render(form))
}

// center places block in the space between header and status bar.
func (m Model) center(block string) string {
	h := m.height - 4
	if h < lipgloss.Height(block) {
		return block
	}
	return lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center, block)
}
