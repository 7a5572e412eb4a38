// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/ragclient/internal/auth"
	"github.com/jeranaias/ragclient/internal/content"
	"github.com/jeranaias/ragclient/internal/conversation"
	"github.com/jeranaias/ragclient/internal/guard"
	"github.com/jeranaias/ragclient/internal/session"
	"github.com/jeranaias/ragclient/internal/ui/styles"
)

// =============================================================================
// SCREENS
// =============================================================================

// Screen is the view currently shown.
type Screen int

const (
	ScreenChat  Screen = iota // Conversation and question input
	ScreenLogin               // Administrator sign-in
	ScreenAdd                 // Add content form
)

func screenFor(route guard.Route) Screen {
	switch route {
	case guard.RouteAddContent:
		return ScreenAdd
	case guard.RouteLogin:
		return ScreenLogin
	default:
		return ScreenChat
	}
}

func (s Screen) route() guard.Route {
	switch s {
	case ScreenAdd:
		return guard.RouteAddContent
	case ScreenLogin:
		return guard.RouteLogin
	default:
		return guard.RouteQuery
	}
}

// backendState tracks the last health check.
type backendState int

const (
	backendUnknown backendState = iota
	backendOnline
	backendOffline
)

const eventBuffer = 32

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the full-screen client.
type Model struct {
	sess  *session.Session
	theme *styles.Theme
	keys  KeyMap
	help  help.Model
	now   func() time.Time

	// Navigation
	screen     Screen
	afterLogin Screen
	waiting    *guard.Route // route requested while auth was loading
	addTitle   string

	// Dimensions
	width  int
	height int

	// Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	login    loginForm
	add      addForm
	markdown *glamour.TermRenderer

	// Request state
	asking    bool
	signingIn bool
	restored  bool
	backend   backendState
	showHelp  bool

	notice    string
	noticeErr bool

	events    chan tea.Msg
	cancelMgr *cancelManager
}

// New creates the model for sess. The session is restored by Init; it must
// not be restored by the caller.
func New(sess *session.Session, theme *styles.Theme) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /help"
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	m := Model{
		sess:      sess,
		theme:     theme,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		now:       time.Now,
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		login:     newLoginForm(),
		add:       newAddForm(),
		events:    make(chan tea.Msg, eventBuffer),
		cancelMgr: newCancelManager(),
	}

	sess.Conversation.Subscribe(func() { m.Notify(ConversationChangedMsg{}) })
	sess.Auth.Subscribe(func(auth.Status) { m.Notify(AuthChangedMsg{}) })
	return m
}

// Notify queues msg for the model. It never blocks; a full queue drops msg
// since every queued message only triggers a refresh. Safe from any
// goroutine, including store watch callbacks.
func (m Model) Notify(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

// Screen returns the screen currently shown.
func (m Model) Screen() Screen {
	return m.screen
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init restores the session and starts background work.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		restoreCmd(m.sess),
		healthCmd(m.sess),
		waitForEvent(m.events),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.screen != ScreenChat {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy() {
			m.refresh()
		}
		return m, cmd

	case RestoredMsg:
		m.restored = true
		m.refresh()
		log.Printf("TUI_RESTORED | auth=%s messages=%d", m.sess.Auth.Status(), m.sess.Conversation.Len())
		return m.resolveWaiting()

	case AnswerMsg:
		m.asking = false
		m.cancelMgr.cancel()
		if msg.Outcome == conversation.OutcomeRejected {
			m.setNotice("A question is already pending.", true)
		}
		m.refresh()
		return m, nil

	case IngestMsg:
		return m.handleIngest(msg)

	case LoginMsg:
		return m.handleLogin(msg)

	case HealthMsg:
		if msg.Err != nil {
			m.backend = backendOffline
		} else {
			m.backend = backendOnline
		}
		return m, nil

	case ExportMsg:
		if msg.Err != nil {
			m.setNotice("Export failed: "+msg.Err.Error(), true)
		} else {
			m.setNotice("Exported to "+msg.Path, false)
		}
		return m, nil

	case ConversationChangedMsg, StoreChangedMsg:
		m.refresh()
		return m, waitForEvent(m.events)

	case AuthChangedMsg:
		next, cmd := m.enforceGuard()
		return next, tea.Batch(cmd, waitForEvent(m.events))

	case BannerTickMsg:
		return m, nil
	}

	return m, nil
}

// View renders the current screen.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// NAVIGATION
// =============================================================================

// navigate applies the access guard to route. While authorization is still
// loading the request is parked and resolved once it is known.
func (m Model) navigate(route guard.Route) (Model, tea.Cmd) {
	if m.sess.Auth.Status() == auth.StatusLoading {
		m.waiting = &route
		return m, nil
	}
	m.waiting = nil

	if d := m.sess.Navigate(route); !d.Allowed() {
		log.Printf("TUI_GUARD | route=%s redirect=%s", route, d.Redirect)
		m.afterLogin = screenFor(route)
		m.setNotice("Adding content requires an administrator sign-in.", false)
		route = d.Redirect
	}
	return m.showScreen(screenFor(route))
}

func (m Model) resolveWaiting() (Model, tea.Cmd) {
	if m.waiting == nil {
		return m, nil
	}
	return m.navigate(*m.waiting)
}

// enforceGuard re-checks the current screen after an auth change, such as
// a sign-out in another process.
func (m Model) enforceGuard() (Model, tea.Cmd) {
	if m.waiting != nil && m.sess.Auth.Status() != auth.StatusLoading {
		return m.resolveWaiting()
	}
	if m.screen == ScreenAdd && !m.sess.Navigate(guard.RouteAddContent).Allowed() {
		return m.navigate(guard.RouteAddContent)
	}
	return m, nil
}

func (m Model) showScreen(s Screen) (Model, tea.Cmd) {
	m.screen = s
	m.input.Blur()
	var cmd tea.Cmd
	switch s {
	case ScreenLogin:
		cmd = m.login.start()
	case ScreenAdd:
		cmd = m.add.start(m.addTitle)
		m.addTitle = ""
	default:
		cmd = m.input.Focus()
		m.refresh()
	}
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}

	switch m.screen {
	case ScreenLogin:
		return m.handleLoginKey(msg)
	case ScreenAdd:
		return m.handleAddKey(msg)
	default:
		return m.handleChatKey(msg)
	}
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			return m, nil
		}
		m.input.Reset()
		m.clearNotice()
		if strings.HasPrefix(line, "/") {
			return m.handleSlashCommand(line)
		}
		return m.ask(line)

	case key.Matches(msg, m.keys.Cancel):
		if m.cancelMgr.cancel() {
			m.setNotice("Request canceled.", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.AddDoc):
		return m.navigate(guard.RouteAddContent)

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask submits a question. The question appears at once through the
// conversation's change notification.
func (m Model) ask(text string) (Model, tea.Cmd) {
	if !m.restored {
		// The stored conversation is still loading; keep the question.
		m.input.SetValue(text)
		m.setNotice("Still loading the conversation.", true)
		return m, nil
	}
	if m.asking || m.sess.Conversation.Pending() {
		m.setNotice("A question is already pending.", true)
		return m, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)
	m.asking = true
	return m, submitCmd(ctx, m.sess, text)
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.cancelMgr.cancel()
		m.signingIn = false
		m.clearNotice()
		return m.showScreen(ScreenChat)

	case key.Matches(msg, m.keys.NextFld):
		return m, m.login.next()

	case key.Matches(msg, m.keys.Submit):
		if m.signingIn {
			return m, nil
		}
		if m.login.focus == 0 {
			return m, m.login.next()
		}
		username, password := m.login.credentials()
		if username == "" || password == "" {
			m.setNotice("Enter a username and password.", true)
			return m, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		m.cancelMgr.set(cancel)
		m.signingIn = true
		m.clearNotice()
		return m, loginCmd(ctx, m.sess, username, password)
	}

	return m, m.login.update(msg)
}

func (m Model) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.clearNotice()
		return m.showScreen(ScreenChat)

	case key.Matches(msg, m.keys.NextFld):
		return m, m.add.next()

	case key.Matches(msg, m.keys.Save):
		if m.sess.Content.Pending() {
			return m, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		m.cancelMgr.set(cancel)
		m.clearNotice()
		return m, ingestCmd(ctx, m.sess, m.add.body.Value(), m.add.title.Value())
	}

	return m, m.add.update(msg)
}

// =============================================================================
// RESULT HANDLERS
// =============================================================================

func (m Model) handleLogin(msg LoginMsg) (tea.Model, tea.Cmd) {
	m.signingIn = false
	m.cancelMgr.cancel()
	if msg.Err != nil {
		m.setNotice(msg.Err.Error(), true)
		return m, m.login.start()
	}

	m.setNotice("Signed in as "+msg.Username+".", false)
	next := m.afterLogin
	m.afterLogin = ScreenChat
	if next == ScreenLogin {
		next = ScreenChat
	}
	return m.navigate(next.route())
}

func (m Model) handleIngest(msg IngestMsg) (tea.Model, tea.Cmd) {
	m.cancelMgr.cancel()
	switch msg.Result.Outcome {
	case content.OutcomeRejected:
		m.setNotice("Nothing to add.", true)
		return m, nil
	case content.OutcomeAdded:
		m.add.reset()
		next, cmd := m.showScreen(ScreenChat)
		return next, tea.Batch(cmd, m.bannerExpiry())
	default:
		// The form keeps its content so the user can retry.
		return m, m.bannerExpiry()
	}
}

func (m Model) bannerExpiry() tea.Cmd {
	if b, ok := m.sess.Content.Banner(m.now()); ok {
		return bannerTickCmd(b.Expires)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (m Model) busy() bool {
	return m.asking || m.signingIn || m.sess.Content.Pending() || !m.restored
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) clearNotice() {
	m.notice = ""
	m.noticeErr = false
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// header, input area and status bar
	const reserved = 2 + 3 + 2
	vh := m.height - reserved
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = vh

	m.input.Width = max(m.width-6, 10)
	m.login.setWidth(max(m.width/2, 20))
	m.add.setSize(max(m.width-8, 20), m.height-14)
	m.help.Width = m.width

	if m.theme != nil {
		m.theme.SetSize(m.width, m.height)
	}
	m.markdown = newMarkdown(m.sess.Config.UI.RenderMarkdown, m.sess.Config.UI.Theme, m.width-6)
	m.refresh()
	return m, nil
}

// refresh re-renders the conversation into the viewport and keeps it
// pinned to the bottom when it was there.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if atBottom || m.asking {
		m.viewport.GotoBottom()
	}
}

func newMarkdown(enabled bool, theme string, width int) *glamour.TermRenderer {
	if !enabled || width < 20 {
		return nil
	}
	style := glamour.WithAutoStyle()
	if theme == "dark" || theme == "light" {
		style = glamour.WithStandardStyle(theme)
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}
