// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation prompts for destructive commands.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrConfirmationRequired is returned when a destructive action cannot be
// confirmed interactively and --yes was not given.
var ErrConfirmationRequired = errors.New("confirmation required: pass --yes")

// RequireConfirmation asks "Are you sure you want to <action>? [y/N]".
// confirmFlag skips the prompt. JSON mode and non-terminal stdin never
// prompt and fail with ErrConfirmationRequired.
//
// Example:
//
//	confirmed, err := RequireConfirmation(p.BoolFlag("yes"), "clear 12 messages", args.JSON)
//	if err != nil || !confirmed {
//	    return err
//	}
func RequireConfirmation(confirmFlag bool, action string, jsonMode bool) (bool, error) {
	if confirmFlag {
		return true, nil
	}
	if jsonMode || !IsTTY() {
		return false, &UsageError{Message: ErrConfirmationRequired.Error()}
	}

	fmt.Fprintf(os.Stderr, "Are you sure you want to %s? [y/N]: ", action)
	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return parseYes(input), nil
}

func parseYes(input string) bool {
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes"
}
