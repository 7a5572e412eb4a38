// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for ragclient commands.
//
// STANDARDIZED PATTERN:
//   - Handlers return errors, the dispatcher prints them
//   - Usage mistakes exit 2, everything else exits 1

package cli

import (
	"errors"
	"fmt"
	"os"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitFailure indicates a failed command
	ExitFailure = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Command, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Command, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// silentError carries an exit code for a failure the handler already
// reported.
type silentError struct {
	reason string
}

func (e *silentError) Error() string {
	return e.reason
}

// errUsage builds a UsageError from a format string.
func errUsage(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}
	return ExitFailure
}

// PrintError writes "[Error] <msg>" to stderr in the error style. Usage
// errors get a pointer to help.
func PrintError(err error) {
	var silent *silentError
	if errors.As(err, &silent) {
		return
	}
	fmt.Fprintln(os.Stderr, RenderConditional(ErrorStyle, "[Error]")+" "+err.Error())
	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintln(os.Stderr, RenderConditional(DimStyle, "Run 'ragclient help' for usage."))
	}
}
