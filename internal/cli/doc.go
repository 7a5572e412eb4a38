// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// ragclient.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - Renderer: Answer formatting with markdown, citations and sources
//   - JSONResponse: The envelope every command prints with --json
//
// # Usage
//
//	cmd, args, err := cli.ParseArgs(os.Args[1:])
//	if err != nil {
//	    cli.PrintError(err)
//	    os.Exit(cli.ExitCode(err))
//	}
//	os.Exit(cli.Run(cmd, args))
//
// # Commands Overview
//
//   - ask: Single question, printed with its sources
//   - chat: Line-mode REPL with slash commands
//   - login, logout: Administrator sign-in
//   - add: Content ingestion behind the access guard
//   - history: Conversation log as text, JSON or YAML, or exported to a document
//   - status: Backend health, sign-in state and storage
//   - config: Show, get and set configuration
//   - serve: Development backend
//
// Commands return errors; Run prints them as "[Error] message" and maps
// them to exit codes 0, 1 and 2.
package cli
