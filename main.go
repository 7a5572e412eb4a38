// ragclient - terminal client for a retrieval-augmented knowledge service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragclient/internal/cli"
	"github.com/jeranaias/ragclient/internal/session"
	"github.com/jeranaias/ragclient/internal/ui/chat"
	"github.com/jeranaias/ragclient/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse()
	if err != nil {
		cli.PrintError(err)
		os.Exit(cli.ExitCode(err))
	}

	if cmd == cli.CmdTUI {
		os.Exit(runTUI(args))
	}
	os.Exit(cli.Run(cmd, args))
}

// runTUI runs the full-screen client. Logging always goes to the data
// directory so it cannot corrupt the alternate screen.
func runTUI(args cli.Args) int {
	if !cli.IsTTY() || !cli.IsStdoutTTY() {
		err := &cli.TTYRequiredError{Operation: "start the full-screen client"}
		cli.PrintError(fmt.Errorf("%w (try 'ragclient chat' or 'ragclient ask')", err))
		return cli.ExitFailure
	}

	cfg, err := cli.LoadConfig(args)
	if err != nil {
		cli.PrintError(err)
		return cli.ExitCode(err)
	}
	restoreLog := cli.SetupLogging(cfg, false)
	defer restoreLog()

	sess, err := session.Open(cfg)
	if err != nil {
		cli.PrintError(err)
		return cli.ExitFailure
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("SESSION_CLOSE_ERROR | error=%v", err)
		}
	}()

	m := chat.New(sess, styles.NewThemeFor(cfg.UI.Theme))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sess.Watch(ctx, func(key string) {
		m.Notify(chat.StoreChangedMsg{Key: key})
	}); err != nil {
		log.Printf("SESSION_WATCH_ERROR | error=%v", err)
	}

	log.Printf("TUI_START | version=%s store=%s url=%s", Version, cfg.Store.Backend, cfg.Backend.URL)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		cli.PrintError(fmt.Errorf("TUI error: %w", err))
		return cli.ExitFailure
	}
	log.Printf("TUI_EXIT")
	return cli.ExitSuccess
}
