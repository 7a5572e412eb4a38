// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-mode chat for ragclient.
//
// Command: chat
// Short:   Start an interactive chat session
// Aliases: repl
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /add [title]        Add content; end input with a line holding only "."
//   /login [user]       Sign in as administrator
//   /logout             Sign out
//   /clear, /c          Clear conversation history
//   /history            Show conversation history
//   /export FILE        Export the conversation to .md or .html
//   /status, /s         Show session state
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the current query
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/ragclient/internal/content"
	"github.com/jeranaias/ragclient/internal/conversation"
	"github.com/jeranaias/ragclient/internal/export"
	"github.com/jeranaias/ragclient/internal/guard"
	"github.com/jeranaias/ragclient/internal/session"
)

// ReplHistoryFile holds the REPL input history in the data directory.
const ReplHistoryFile = "repl_history"

// contentTerminator ends multi-line content input.
const contentTerminator = "."

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history lives in dataDir.
func NewChatCLI(dataDir string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dataDir, ReplHistoryFile),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// ReadSecret reads a line without echo.
func (c *ChatCLI) ReadSecret(prompt string) (string, error) {
	return c.line.PasswordPrompt(prompt)
}

// ReadBlock reads lines until a line holding only the terminator. The
// lines are not added to the history.
func (c *ChatCLI) ReadBlock(prompt string) (string, error) {
	var lines []string
	for {
		line, err := c.line.Prompt(prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == contentTerminator {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
}

// Close saves history with 0600 permissions and restores the terminal.
func (c *ChatCLI) Close() {
	if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		c.line.WriteHistory(f)
		f.Close()
	}
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// chatREPL holds the state of one interactive session.
type chatREPL struct {
	sess     *session.Session
	input    *ChatCLI
	renderer *Renderer
	out      io.Writer
	quiet    bool
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) error {
	if !IsTTY() {
		return &TTYRequiredError{Operation: "chat"}
	}

	sess, cleanup, err := OpenSession(args)
	if err != nil {
		return err
	}
	defer cleanup()

	dataDir, err := sess.Config.DataDir()
	if err != nil {
		return err
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if err := sess.Watch(watchCtx, nil); err != nil {
		log.Printf("CHAT_WATCH_ERROR | error=%v", err)
	}

	r := &chatREPL{
		sess:     sess,
		input:    NewChatCLI(dataDir),
		renderer: NewRenderer(sess.Config.UI, GetTerminalWidth()),
		out:      os.Stdout,
		quiet:    args.Quiet,
	}
	defer r.input.Close()

	if !r.quiet {
		r.printWelcome()
	}
	return r.loop()
}

func (r *chatREPL) loop() error {
	for {
		input, err := r.input.ReadInput(RenderConditional(PromptStyle, "ragclient> "))
		if err != nil {
			// Ctrl+C at the prompt and Ctrl+D both exit
			fmt.Fprintln(r.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := r.handleSlashCommand(input)
			if err != nil {
				PrintError(err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		r.ask(input)
	}
}

// ask submits one question. Ctrl+C cancels the request, which resolves into
// the error reply like any other failure.
func (r *chatREPL) ask(question string) {
	ctx, cancel := signalContext()
	defer cancel()

	if !r.quiet {
		fmt.Fprintln(r.out, RenderConditional(DimStyle, "Thinking..."))
	}
	switch r.sess.Conversation.Submit(ctx, question) {
	case conversation.OutcomeRejected:
		fmt.Fprintln(r.out, RenderConditional(WarningStyle, "A query is already pending."))
		return
	case conversation.OutcomeDiscarded:
		return
	}

	msgs := r.sess.Conversation.Messages()
	fmt.Fprintln(r.out)
	printReply(r.renderer, msgs[len(msgs)-1], r.quiet)
	fmt.Fprintln(r.out)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs one slash command and reports whether the REPL
// should continue.
func (r *chatREPL) handleSlashCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	ctx, cancel := signalContext()
	defer cancel()

	switch cmd {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h", "/?":
		r.printHelp()

	case "/clear", "/c":
		if err := r.sess.Conversation.Clear(ctx); err != nil {
			return true, fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Fprintln(r.out, RenderStatus("ok")+" Conversation cleared")

	case "/history":
		out, err := FormatHistory(r.sess.Conversation.Messages(), FormatText, r.renderer)
		if err != nil {
			return true, err
		}
		fmt.Fprint(r.out, out)

	case "/export":
		if rest == "" {
			return true, fmt.Errorf("usage: /export FILE.md|FILE.html")
		}
		msgs := r.sess.Conversation.Messages()
		exporter, err := export.ForPath(rest, &export.Options{
			IncludeMetadata:   true,
			IncludeTimestamps: true,
			IncludeSources:    true,
			Theme:             r.sess.Config.UI.Theme,
		})
		if err != nil {
			return true, err
		}
		if err := export.WriteFile(msgs, rest, exporter); err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s Exported %d messages to %s\n", RenderStatus("ok"), len(msgs), rest)

	case "/status", "/s":
		fmt.Fprintln(r.out, RenderField("Sign-in", r.sess.Auth.Status().String()))
		fmt.Fprintln(r.out, RenderField("Messages", fmt.Sprint(r.sess.Conversation.Len())))
		fmt.Fprintln(r.out, RenderField("Backend", r.sess.Gateway.BaseURL()))

	case "/login":
		return true, r.login(ctx, rest)

	case "/logout":
		if err := r.sess.Auth.Logout(ctx); err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, RenderStatus("ok")+" Signed out")

	case "/add":
		return true, r.add(ctx, rest)

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return true, nil
}

func (r *chatREPL) login(ctx context.Context, username string) error {
	var err error
	if username == "" {
		if username, err = r.input.line.Prompt("Username: "); err != nil {
			return nil
		}
	}
	password, err := r.input.ReadSecret("Password: ")
	if err != nil {
		return nil
	}
	if err := Authenticate(ctx, r.sess, strings.TrimSpace(username), password); err != nil {
		return err
	}
	fmt.Fprintln(r.out, RenderStatus("ok")+" Signed in as "+strings.TrimSpace(username))
	return nil
}

// add follows the access guard: without a sign-in it redirects to /login
// first and continues only when that succeeds.
func (r *chatREPL) add(ctx context.Context, title string) error {
	if d := r.sess.Navigate(guard.RouteAddContent); !d.Allowed() {
		fmt.Fprintln(r.out, RenderConditional(WarningStyle, "Adding content requires an administrator sign-in."))
		if d.Redirect == guard.RouteLogin {
			if err := r.login(ctx, ""); err != nil {
				return err
			}
		}
		if !r.sess.Navigate(guard.RouteAddContent).Allowed() {
			return nil
		}
	}

	fmt.Fprintln(r.out, RenderConditional(DimStyle, "Enter content. Finish with a line containing only \".\"."))
	text, err := r.input.ReadBlock("... ")
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out, RenderConditional(DimStyle, "Cancelled."))
			return nil
		}
		return err
	}

	res := r.sess.Content.Submit(ctx, text, title)
	banner, ok := r.sess.Content.Banner(time.Now())
	switch {
	case res.Outcome == content.OutcomeRejected:
		fmt.Fprintln(r.out, RenderConditional(DimStyle, "Nothing to add."))
	case ok && banner.Kind == content.BannerSuccess:
		fmt.Fprintln(r.out, RenderStatus("ok")+" "+banner.Text)
	case ok:
		fmt.Fprintln(r.out, RenderStatus("error")+" "+banner.Text)
	}
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *chatREPL) printWelcome() {
	fmt.Fprintln(r.out, RenderConditional(TitleStyle, "ragclient chat"))
	fmt.Fprintln(r.out, RenderField("Backend", r.sess.Gateway.BaseURL()))
	fmt.Fprintln(r.out, RenderField("Sign-in", r.sess.Auth.Status().String()))
	if n := r.sess.Conversation.Len(); n > 0 {
		fmt.Fprintln(r.out, RenderField("History", fmt.Sprintf("%d messages restored", n)))
	}
	fmt.Fprintln(r.out, RenderConditional(DimStyle, "Type a question, /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(r.out)
}

func (r *chatREPL) printHelp() {
	cmds := [][2]string{
		{"/add [title]", "Add content (admin)"},
		{"/login [user]", "Sign in as administrator"},
		{"/logout", "Sign out"},
		{"/clear", "Clear the conversation"},
		{"/history", "Show the conversation"},
		{"/export FILE", "Export to Markdown or HTML"},
		{"/status", "Show session state"},
		{"/quit", "Exit"},
	}
	for _, c := range cmds {
		fmt.Fprintln(r.out, RenderField(c[0], c[1]))
	}
}
