// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// add.go - Content ingestion command for ragclient.
//
// Command: add [-f FILE] [-t TITLE] [text...]
// Aliases: ingest
//
// Adding content requires an administrator sign-in. Without one the
// command redirects to the login prompt on a terminal and fails otherwise.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/ragclient/internal/content"
	"github.com/jeranaias/ragclient/internal/guard"
	"github.com/jeranaias/ragclient/internal/session"
)

// ErrNotSignedIn is returned when content is added without a sign-in and
// no prompt is possible.
var ErrNotSignedIn = errors.New("not signed in; run 'ragclient login' first")

// HandleAdd handles the "add" command.
func HandleAdd(args Args) error {
	p := NewArgParser(args.Raw)

	text, err := readContent(p.Flag("f", "file"), p.Positional())
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errUsage("content must not be empty")
	}

	sess, cleanup, err := OpenSession(args)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	if err := ensureSignedIn(ctx, sess); err != nil {
		return err
	}

	res := sess.Content.Submit(ctx, text, p.Flag("t", "title"))
	switch res.Outcome {
	case content.OutcomeAdded:
		if args.JSON {
			return NewJSONResponse("add", AddData{DocID: res.DocID, Status: "success"}).Print()
		}
		if !args.Quiet {
			fmt.Println(RenderStatus("ok") + " " + content.SuccessText)
			fmt.Println(RenderField("Document", res.DocID))
		}
		return nil
	case content.OutcomeFailed:
		return fmt.Errorf("%s: %w", content.FailureText, res.Err)
	default:
		return errUsage("content must not be empty")
	}
}

// ensureSignedIn applies the access guard to the add-content route and
// follows a redirect to the login prompt when one is possible.
func ensureSignedIn(ctx context.Context, sess *session.Session) error {
	decision := sess.Navigate(guard.RouteAddContent)
	if decision.Allowed() {
		return nil
	}
	if decision.Redirect != guard.RouteLogin || !IsTTY() {
		return ErrNotSignedIn
	}

	fmt.Fprintln(os.Stderr, RenderConditional(WarningStyle, "Adding content requires an administrator sign-in."))
	username, err := ReadPrompt("Username: ")
	if err != nil {
		return err
	}
	password, err := ReadPassword("Password: ")
	if err != nil {
		return err
	}
	if err := Authenticate(ctx, sess, strings.TrimSpace(username), password); err != nil {
		return err
	}
	if !sess.Navigate(guard.RouteAddContent).Allowed() {
		return ErrNotSignedIn
	}
	return nil
}
