// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface functionality.
// This file contains shared helper functions used across multiple CLI commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jeranaias/ragclient/internal/config"
	"github.com/jeranaias/ragclient/internal/session"
)

// MaxContentSize bounds content read for the add command.
const MaxContentSize = 1 << 20

// =============================================================================
// CONFIG AND SESSION SETUP
// =============================================================================

// LoadConfig loads the configuration and applies command-line overrides.
func LoadConfig(args Args) (*config.Config, error) {
	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return nil, err
	}
	if args.URL != "" {
		cfg.Backend.URL = args.URL
	}
	if args.Store != "" {
		cfg.Store.Backend = args.Store
	}
	if args.DataDir != "" {
		cfg.Store.DataDir = args.DataDir
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &UsageError{Message: err.Error()}
	}
	return cfg, nil
}

// SetupLogging sends the standard logger to the log file in the data
// directory unless verbose output was requested. The returned function
// undoes the redirect.
func SetupLogging(cfg *config.Config, verbose bool) func() {
	if verbose {
		return func() {}
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }
	}
	closer, err := session.RedirectLog(dataDir)
	if err != nil {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }
	}
	return func() { closer.Close() }
}

// OpenSession loads config, sets up logging, opens the store and restores
// state. The returned cleanup closes everything.
func OpenSession(args Args) (*session.Session, func(), error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, nil, err
	}
	restoreLog := SetupLogging(cfg, args.Verbose)

	sess, err := session.Open(cfg)
	if err != nil {
		restoreLog()
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sess.Restore(ctx)

	cleanup := func() {
		if err := sess.Close(); err != nil {
			log.Printf("SESSION_CLOSE_ERROR | error=%v", err)
		}
		restoreLog()
	}
	return sess, cleanup, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// =============================================================================
// INPUT
// =============================================================================

// readContent returns text from a file ("-" is stdin), from positional
// words, or from piped stdin, in that order.
func readContent(file string, words []string) (string, error) {
	switch {
	case file == "-":
		return readLimited(os.Stdin, "stdin")
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close()
		return readLimited(f, file)
	case len(words) > 0:
		return strings.Join(words, " "), nil
	case !IsTTY():
		return readLimited(os.Stdin, "stdin")
	default:
		return "", errUsage("no content given; use -f FILE, pipe text on stdin or pass it as arguments")
	}
}

func readLimited(r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxContentSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) > MaxContentSize {
		return "", fmt.Errorf("%s exceeds %s", name, formatBytes(MaxContentSize))
	}
	return string(data), nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// formatBytes formats a byte count for display.
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

// formatDuration formats a duration as the largest whole unit.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
