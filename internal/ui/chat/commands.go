// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragclient/internal/export"
	"github.com/jeranaias/ragclient/internal/gateway"
	"github.com/jeranaias/ragclient/internal/guard"
	"github.com/jeranaias/ragclient/internal/model"
	"github.com/jeranaias/ragclient/internal/session"
)

const (
	restoreTimeout = 10 * time.Second
	healthTimeout  = 5 * time.Second
)

// =============================================================================
// ASYNC REQUESTS
// =============================================================================

func restoreCmd(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()
		sess.Restore(ctx)
		return RestoredMsg{}
	}
}

func submitCmd(ctx context.Context, sess *session.Session, text string) tea.Cmd {
	return func() tea.Msg {
		return AnswerMsg{Outcome: sess.Conversation.Submit(ctx, text)}
	}
}

func ingestCmd(ctx context.Context, sess *session.Session, text, title string) tea.Cmd {
	return func() tea.Msg {
		return IngestMsg{Result: sess.Content.Submit(ctx, text, title)}
	}
}

func loginCmd(ctx context.Context, sess *session.Session, username, password string) tea.Cmd {
	return func() tea.Msg {
		err := sess.Auth.Authenticate(ctx, sess.Gateway, username, password)
		if err != nil {
			err = errors.New(gateway.Describe(err))
		}
		return LoginMsg{Username: username, Err: err}
	}
}

func healthCmd(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		return HealthMsg{Err: sess.Gateway.Health(ctx)}
	}
}

// exportCmd writes the log to path, or to a timestamped Markdown file in the
// working directory when path is empty.
func exportCmd(log model.Log, path, theme string) tea.Cmd {
	return func() tea.Msg {
		opts := export.DefaultOptions()
		opts.Theme = theme
		if path == "" {
			path = export.DefaultFilename(log, export.NewMarkdownExporter(opts), time.Now())
		}
		exporter, err := export.ForPath(path, opts)
		if err == nil {
			err = export.WriteFile(log, path, exporter)
		}
		return ExportMsg{Path: path, Err: err}
	}
}

// waitForEvent delivers the next state change. It is re-issued after each one.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func bannerTickCmd(expires time.Time) tea.Cmd {
	return tea.Tick(time.Until(expires), func(t time.Time) tea.Msg {
		return BannerTickMsg{At: t}
	})
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// slashCommand describes one command for /help.
type slashCommand struct {
	Name string
	Args string
	Desc string
}

var slashCommands = []slashCommand{
	{"/add", "[title]", "add content to the knowledge base"},
	{"/login", "[user]", "sign in as administrator"},
	{"/logout", "", "sign out"},
	{"/clear", "", "delete the conversation"},
	{"/export", "[file.md|file.html]", "save the conversation as a document"},
	{"/help", "", "show commands and keys"},
	{"/quit", "", "exit"},
}

func (m Model) handleSlashCommand(line string) (Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, rest := strings.ToLower(fields[0]), strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/quit", "/exit", "/q":
		m.cancelMgr.cancel()
		return m, tea.Quit

	case "/help", "/?":
		m.showHelp = !m.showHelp
		return m, nil

	case "/clear":
		if err := m.sess.Conversation.Clear(context.Background()); err != nil {
			m.setNotice("Failed to clear conversation: "+err.Error(), true)
			return m, nil
		}
		m.setNotice("Conversation cleared.", false)
		m.refresh()
		return m, nil

	case "/export":
		return m, exportCmd(m.sess.Conversation.Messages(), rest, m.sess.Config.UI.Theme)

	case "/logout":
		if err := m.sess.Auth.Logout(context.Background()); err != nil {
			m.setNotice("Sign-out was not saved: "+err.Error(), true)
			return m, nil
		}
		m.setNotice("Signed out.", false)
		return m, nil

	case "/login":
		if rest != "" {
			m.login.username.SetValue(rest)
		}
		m.afterLogin = ScreenChat
		return m.showScreen(ScreenLogin)

	default:
		if route, ok := guard.ParseRoute(name); ok && route == guard.RouteAddContent {
			m.addTitle = rest
			return m.navigate(route)
		}
		m.setNotice("Unknown command "+name+". Type /help.", true)
		return m, nil
	}
}
