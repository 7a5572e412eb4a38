// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// SIGN-IN FORM
// =============================================================================

type loginForm struct {
	username textinput.Model
	password textinput.Model
	focus    int
}

func newLoginForm() loginForm {
	u := textinput.New()
	u.Prompt = ""
	u.Placeholder = "admin@example.com"
	u.CharLimit = 256

	p := textinput.New()
	p.Prompt = ""
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '*'
	p.CharLimit = 1024

	return loginForm{username: u, password: p}
}

// start focuses the username field, or the password when a username is
// already filled in.
func (f *loginForm) start() tea.Cmd {
	f.password.Reset()
	if strings.TrimSpace(f.username.Value()) != "" {
		return f.setFocus(1)
	}
	return f.setFocus(0)
}

func (f *loginForm) setFocus(i int) tea.Cmd {
	f.focus = i
	if i == 0 {
		f.password.Blur()
		return f.username.Focus()
	}
	f.username.Blur()
	return f.password.Focus()
}

func (f *loginForm) next() tea.Cmd {
	return f.setFocus(1 - f.focus)
}

func (f *loginForm) credentials() (string, string) {
	return strings.TrimSpace(f.username.Value()), f.password.Value()
}

func (f *loginForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.username, cmd = f.username.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

func (f *loginForm) setWidth(w int) {
	f.username.Width = w
	f.password.Width = w
}

// =============================================================================
// ADD CONTENT FORM
// =============================================================================

type addForm struct {
	title textinput.Model
	body  textarea.Model
	focus int
}

func newAddForm() addForm {
	t := textinput.New()
	t.Prompt = ""
	t.Placeholder = "optional"
	t.CharLimit = 256

	b := textarea.New()
	b.Placeholder = "Paste or type the content to add..."
	b.ShowLineNumbers = false
	b.CharLimit = 0
	b.SetHeight(8)

	return addForm{title: t, body: b, focus: 1}
}

func (f *addForm) start(title string) tea.Cmd {
	if title != "" {
		f.title.SetValue(title)
	}
	return f.setFocus(1)
}

func (f *addForm) setFocus(i int) tea.Cmd {
	f.focus = i
	if i == 0 {
		f.body.Blur()
		return f.title.Focus()
	}
	f.title.Blur()
	return f.body.Focus()
}

func (f *addForm) next() tea.Cmd {
	return f.setFocus(1 - f.focus)
}

func (f *addForm) reset() {
	f.title.Reset()
	f.body.Reset()
}

func (f *addForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.title, cmd = f.title.Update(msg)
	} else {
		f.body, cmd = f.body.Update(msg)
	}
	return cmd
}

func (f *addForm) setSize(w, h int) {
	f.title.Width = w
	f.body.SetWidth(w)
	if h < 3 {
		h = 3
	}
	f.body.SetHeight(h)
}
