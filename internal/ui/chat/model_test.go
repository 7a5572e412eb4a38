// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragclient/internal/auth"
	"github.com/jeranaias/ragclient/internal/config"
	"github.com/jeranaias/ragclient/internal/content"
	"github.com/jeranaias/ragclient/internal/conversation"
	"github.com/jeranaias/ragclient/internal/devserver"
	"github.com/jeranaias/ragclient/internal/session"
	"github.com/jeranaias/ragclient/internal/store"
	"github.com/jeranaias/ragclient/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

func backendURL(t *testing.T) string {
	t.Helper()
	cfg := config.Default().Server
	cfg.Username = "a@b.com"
	cfg.Password = "x"
	cfg.JWTSecret = "test-secret"

	srv, err := devserver.New(cfg)
	require.NoError(t, err)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return hs.URL
}

func newSession(t *testing.T, url string, st store.Store) *session.Session {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.URL = url
	cfg.UI.RenderMarkdown = false
	sess := session.New(cfg, st)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

// newTestModel returns a sized, restored model.
func newTestModel(t *testing.T, url string) (Model, *session.Session) {
	t.Helper()
	sess := newSession(t, url, store.NewMemoryStore())
	m := New(sess, styles.NewTheme())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, restoreCmd(sess)())
	return m, sess
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return nm, cmd
}

// run executes cmd, which must be a single request command, and feeds its
// result back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func enter(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func signIn(t *testing.T, m Model, username, password string) Model {
	t.Helper()
	m.login.username.SetValue(username)
	m.login.password.SetValue(password)
	_ = m.login.setFocus(1)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.signingIn)
	return run(t, m, cmd)
}

// =============================================================================
// QUESTIONS
// =============================================================================

func TestAsk_AppendsQuestionAndAnswer(t *testing.T) {
	m, sess := newTestModel(t, backendURL(t))

	m, cmd := enter(t, m, "What is Go?")
	assert.True(t, m.asking)
	assert.Empty(t, m.input.Value(), "input cleared on submit")

	m = run(t, m, cmd)
	assert.False(t, m.asking)

	log := sess.Conversation.Messages()
	require.Len(t, log, 2)
	assert.Equal(t, "What is Go?", log[0].Text)
	assert.Equal(t, devserver.NoAnswer, log[1].Text)
	assert.Contains(t, m.View(), "What is Go?")
}

func TestAsk_BackendDownShowsErrorReply(t *testing.T) {
	hs := httptest.NewServer(nil)
	url := hs.URL
	hs.Close()

	m, sess := newTestModel(t, url)
	m, cmd := enter(t, m, "anyone there?")
	m = run(t, m, cmd)

	log := sess.Conversation.Messages()
	require.Len(t, log, 2)
	assert.True(t, log[1].IsError)
	assert.Contains(t, m.renderConversation(), conversation.ErrorText)
}

func TestAsk_SecondQuestionWhilePending(t *testing.T) {
	m, _ := newTestModel(t, backendURL(t))

	m, cmd := enter(t, m, "first")
	require.NotNil(t, cmd)
	m, cmd = enter(t, m, "second")
	assert.Nil(t, cmd)
	assert.Equal(t, "A question is already pending.", m.notice)
}

func TestAsk_WaitsForRestore(t *testing.T) {
	sess := newSession(t, backendURL(t), store.NewMemoryStore())
	m := New(sess, styles.NewTheme())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := enter(t, m, "too early")
	assert.Nil(t, cmd)
	assert.False(t, m.asking)
	assert.Equal(t, "too early", m.input.Value(), "question kept for later")
	assert.Equal(t, 0, sess.Conversation.Len())

	m, _ = update(t, m, restoreCmd(sess)())
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = run(t, m, cmd)
	assert.Equal(t, 2, sess.Conversation.Len())
}

func TestAsk_BlankInputIgnored(t *testing.T) {
	m, sess := newTestModel(t, backendURL(t))
	m, cmd := enter(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.asking)
	assert.Equal(t, 0, sess.Conversation.Len())
}

// =============================================================================
// ACCESS GUARD AND SIGN-IN
// =============================================================================

func TestAdd_RedirectsThroughLogin(t *testing.T) {
	m, sess := newTestModel(t, backendURL(t))

	m, _ = enter(t, m, "/add Handbook")
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Equal(t, ScreenAdd, m.afterLogin)

	m = signIn(t, m, "a@b.com", "x")
	assert.True(t, sess.Auth.IsAuthorized())
	require.Equal(t, ScreenAdd, m.Screen(), "continues to the requested screen")
	assert.Equal(t, "Handbook", m.add.title.Value())

	m.add.body.SetValue("Go was designed at Google.")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = run(t, m, cmd)

	assert.Equal(t, ScreenChat, m.Screen())
	b, ok := sess.Content.Banner(m.now())
	require.True(t, ok)
	assert.Equal(t, content.BannerSuccess, b.Kind)
	assert.Contains(t, m.View(), content.SuccessText)
	assert.Empty(t, m.add.body.Value(), "form reset after success")
}

func TestAdd_AllowedWhenSignedIn(t *testing.T) {
	m, sess := newTestModel(t, backendURL(t))
	require.NoError(t, sess.Auth.Login(context.Background(), "tok"))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	assert.Equal(t, ScreenAdd, m.Screen())
}

func TestAdd_RejectedTokenShowsFailureBanner(t *testing.T) {
	m, sess := newTestModel(t, backendURL(t))
	require.NoError(t, sess.Auth.Login(context.Background(), "not-a-jwt"))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	m.add.body.SetValue("some text")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = run(t, m, cmd)

	assert.Equal(t, ScreenAdd, m.Screen(), "form kept for retry")
	assert.Equal(t, "some text", m.add.body.Value())
	assert.Contains(t, m.View(), content.FailureText)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	m, sess := newTestModel(t, backendURL(t))

	m, _ = enter(t, m, "/login a@b.com")
	require.Equal(t, ScreenLogin, m.Screen())
	assert.Equal(t, "a@b.com", m.login.username.Value())

	m = signIn(t, m, "a@b.com", "wrong")
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Equal(t, "Invalid credentials", m.notice)
	assert.True(t, m.noticeErr)
	assert.False(t, sess.Auth.IsAuthorized())
	assert.Empty(t, m.login.password.Value(), "password cleared")
}

func TestLogin_EscReturnsToChat(t *testing.T) {
	m, _ := newTestModel(t, backendURL(t))
	m, _ = enter(t, m, "/login")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ScreenChat, m.Screen())
}

func TestGuard_WaitsForAuthRestore(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(context.Background(), auth.TokenKey, "tok"))
	sess := newSession(t, backendURL(t), st)

	m := New(sess, styles.NewTheme())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.Equal(t, auth.StatusLoading, sess.Auth.Status())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	assert.Equal(t, ScreenChat, m.Screen(), "no redirect while loading")

	m, _ = update(t, m, restoreCmd(sess)())
	assert.Equal(t, ScreenAdd, m.Screen())
}

func TestGuard_SignOutElsewhereLeavesAddScreen(t *testing.T) {
	m, sess := newTestModel(t, backendURL(t))
	require.NoError(t, sess.Auth.Login(context.Background(), "tok"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	require.Equal(t, ScreenAdd, m.Screen())

	require.NoError(t, sess.Auth.Logout(context.Background()))
	m, _ = update(t, m, AuthChangedMsg{})
	assert.Equal(t, ScreenLogin, m.Screen())
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func TestSlashCommands(t *testing.T) {
	m, sess := newTestModel(t, backendURL(t))
	ctx := context.Background()

	m, cmd := enter(t, m, "hello")
	m = run(t, m, cmd)
	require.Equal(t, 2, sess.Conversation.Len())

	m, _ = enter(t, m, "/clear")
	assert.Equal(t, 0, sess.Conversation.Len())

	require.NoError(t, sess.Auth.Login(ctx, "tok"))
	m, _ = enter(t, m, "/logout")
	assert.False(t, sess.Auth.IsAuthorized())
	assert.Equal(t, "Signed out.", m.notice)

	m, _ = enter(t, m, "/frobnicate")
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "/frobnicate")

	m, _ = enter(t, m, "/help")
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "/logout")

	_, cmd = enter(t, m, "/quit")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestExportCommand(t *testing.T) {
	m, _ := newTestModel(t, backendURL(t))

	m, cmd := enter(t, m, "hello")
	m = run(t, m, cmd)

	path := filepath.Join(t.TempDir(), "chat.html")
	m, cmd = enter(t, m, "/export "+path)
	m = run(t, m, cmd)
	assert.False(t, m.noticeErr)
	assert.Equal(t, "Exported to "+path, m.notice)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>hello</title>")

	m, cmd = enter(t, m, "/export chat.pdf")
	m = run(t, m, cmd)
	assert.True(t, m.noticeErr)
}

func TestDiscardedAnswerEndsPending(t *testing.T) {
	m, _ := newTestModel(t, backendURL(t))

	m, cmd := enter(t, m, "question")
	require.NotNil(t, cmd)
	m, _ = enter(t, m, "/clear")
	m, _ = update(t, m, AnswerMsg{Outcome: conversation.OutcomeDiscarded})

	assert.False(t, m.asking)
	assert.Equal(t, "Conversation cleared.", m.notice)
}

// =============================================================================
// EVENTS AND RENDERING
// =============================================================================

func TestNotify_NeverBlocks(t *testing.T) {
	m, _ := newTestModel(t, backendURL(t))
	for i := 0; i < eventBuffer*2; i++ {
		m.Notify(StoreChangedMsg{Key: "chat_history"})
	}
	assert.Len(t, m.events, eventBuffer)
}

func TestConversationChangeReissuesWait(t *testing.T) {
	m, _ := newTestModel(t, backendURL(t))
	_, cmd := update(t, m, ConversationChangedMsg{})
	assert.NotNil(t, cmd)
}

func TestHealthUpdatesHeader(t *testing.T) {
	m, _ := newTestModel(t, backendURL(t))
	m, _ = update(t, m, healthCmd(m.sess)())
	assert.Equal(t, backendOnline, m.backend)
	assert.Contains(t, m.renderHeader(), "online")
}

func TestRenderAnswer_Citations(t *testing.T) {
	m, sess := newTestModel(t, backendURL(t))

	sess.Config.UI.Citations = "strip"
	assert.NotContains(t, m.renderAnswer("Go is fast [1]."), "[1]")

	sess.Config.UI.Citations = "render"
	assert.Contains(t, m.renderAnswer("Go is fast [1]."), "[1]")
}

func TestView_NarrowLayoutDropsShortcuts(t *testing.T) {
	m, _ := newTestModel(t, backendURL(t))
	wide := m.renderStatusBar()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 20})
	narrow := m.renderStatusBar()
	assert.True(t, strings.Contains(wide, "send"))
	assert.False(t, strings.Contains(narrow, "send"))
}
