// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for ragclient.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdLogin
	CmdLogout
	CmdAdd
	CmdHistory
	CmdStatus
	CmdConfig
	CmdServe
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:     "tui",
	CmdChat:    "chat",
	CmdAsk:     "ask",
	CmdLogin:   "login",
	CmdLogout:  "logout",
	CmdAdd:     "add",
	CmdHistory: "history",
	CmdStatus:  "status",
	CmdConfig:  "config",
	CmdServe:   "serve",
	CmdVersion: "version",
	CmdHelp:    "help",
}

// String returns the command name as typed on the command line.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	URL        string
	Store      string
	DataDir    string
	Quiet      bool
	Verbose    bool
	JSON       bool

	// Command-specific
	Query      string
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args (remaining after the command name)
	Raw []string
}

const usageText = `ragclient - knowledge base client

Ask questions against a retrieval-augmented knowledge service and, as an
administrator, add content to it.

Usage:
  ragclient                      Start the TUI (default)
  ragclient chat                 Interactive line-mode chat
  ragclient ask "question"       Ask a single question
  ragclient login [-u USER]      Sign in as administrator
  ragclient logout               Sign out
  ragclient add [-f FILE]        Add content to the knowledge base
  ragclient history              Show the conversation log
  ragclient status, s            Show backend and session status
  ragclient config [show|set|path]
  ragclient serve                Run the development backend
  ragclient version              Show version information

Add Options:
  -f, --file FILE       Read content from FILE ("-" for stdin)
  -t, --title TITLE     Title for the content
  Text may also be given as arguments or piped on stdin.

History Options:
  --format text|json|yaml    Output format (default: text)
  -o, --export FILE          Write a Markdown (.md) or HTML (.html) document
  --clear [--yes]            Delete the conversation log

Serve Options:
  --addr HOST:PORT      Listen address (default from config)
  --user USER           Admin username
  --password PASS       Admin password (generated when empty)

Chat Commands:
  /add [title]      Add content (prompts for text, end with a lone ".")
  /login, /logout   Sign in or out
  /clear            Clear the conversation
  /history          Show the conversation
  /export FILE      Export the conversation (.md or .html)
  /help, /quit

Global Flags:
  --config PATH       Configuration file (default ~/.ragclient/config.toml)
  --url URL           Backend base URL
  --store BACKEND     Store backend: file, sqlite, bolt, memory
  --data-dir DIR      Directory for stored state and logs
  -q, --quiet         Minimal output
  -v, --verbose       Log to stderr instead of the log file
  --json              JSON output

Examples:
  ragclient ask "What is our refund policy?"
  ragclient login -u admin@example.com
  ragclient add -f handbook.md --title "Employee handbook"
  cat notes.txt | ragclient add
  ragclient history --format yaml
  ragclient history --export chat.html
  ragclient config set backend.url http://rag.internal:8000
  ragclient --store sqlite chat

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("ragclient version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses os.Args.
func Parse() (Command, Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
// Unknown commands and malformed global flags are usage errors.
func ParseArgs(argv []string) (Command, Args, error) {
	remaining, parsed, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, parsed, err
	}

	if len(remaining) == 0 {
		return CmdTUI, parsed, nil
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed, nil
	case "chat", "repl":
		return CmdChat, parsed, nil
	case "ask", "q":
		parsed.Query = strings.Join(NewArgParser(remaining).Positional(), " ")
		return CmdAsk, parsed, nil
	case "login":
		return CmdLogin, parsed, nil
	case "logout":
		return CmdLogout, parsed, nil
	case "add", "ingest":
		return CmdAdd, parsed, nil
	case "history", "log":
		return CmdHistory, parsed, nil
	case "status", "s":
		return CmdStatus, parsed, nil
	case "config":
		parseConfigArgs(&parsed, remaining)
		return CmdConfig, parsed, nil
	case "serve", "server":
		return CmdServe, parsed, nil
	case "version", "--version":
		return CmdVersion, parsed, nil
	case "help", "-h", "--help":
		return CmdHelp, parsed, nil
	default:
		msg := fmt.Sprintf("unknown command %q", cmd)
		if s := SuggestCommand(cmd); s != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", s)
		}
		return CmdHelp, parsed, &UsageError{Message: msg}
	}
}

// parseGlobalFlags extracts global flags from anywhere in args and returns
// the remaining args.
func parseGlobalFlags(args []string) ([]string, Args, error) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		name, value, hasValue := strings.Cut(arg, "=")
		target := globalValueFlag(&parsed, name)
		if target != nil {
			if !hasValue {
				if i+1 >= len(args) {
					return nil, parsed, &UsageError{Message: fmt.Sprintf("flag %s requires a value", name)}
				}
				i++
				value = args[i]
			}
			*target = value
			continue
		}

		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsed, nil
}

func globalValueFlag(a *Args, name string) *string {
	switch name {
	case "--config":
		return &a.ConfigPath
	case "--url":
		return &a.URL
	case "--store":
		return &a.Store
	case "--data-dir":
		return &a.DataDir
	default:
		return nil
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
	}
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// Run executes cmd and returns the process exit code. The TUI command is
// handled by the caller, which owns the bubbletea program.
func Run(cmd Command, args Args) int {
	var err error
	switch cmd {
	case CmdChat:
		err = HandleChat(args)
	case CmdAsk:
		err = HandleAsk(args)
	case CmdLogin:
		err = HandleLogin(args)
	case CmdLogout:
		err = HandleLogout(args)
	case CmdAdd:
		err = HandleAdd(args)
	case CmdHistory:
		err = HandleHistory(args)
	case CmdStatus:
		err = HandleStatus(args)
	case CmdConfig:
		err = HandleConfig(args)
	case CmdServe:
		err = HandleServe(args)
	case CmdVersion:
		HandleVersion(args)
	case CmdHelp:
		PrintUsage()
	default:
		err = &UsageError{Message: fmt.Sprintf("command %s is not handled here", cmd)}
	}

	if err != nil {
		var silent *silentError
		if args.JSON && !errors.As(err, &silent) {
			NewJSONErrorResponse(cmd.String(), err).Print()
		} else {
			PrintError(err)
		}
		return ExitCode(err)
	}
	return ExitSuccess
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		NewJSONResponse("version", data).Print()
		return
	}
	PrintVersion()
}
