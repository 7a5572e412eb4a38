// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Administrator sign-in commands for ragclient.
//
// Command: login [-u USER] [--token TOKEN]
// Command: logout
//
// Examples:
//   ragclient login -u admin@example.com       Prompts for the password
//   echo "$PW" | ragclient login -u admin      Password from stdin
//   ragclient login --token "$TOKEN"           Store an existing token
//   ragclient logout
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/ragclient/internal/auth"
	"github.com/jeranaias/ragclient/internal/gateway"
	"github.com/jeranaias/ragclient/internal/session"
)

// Messages shown for failed sign-in attempts.
const (
	MsgInvalidCredentials = gateway.InvalidCredentialsText
	MsgBackendUnreachable = gateway.UnreachableText
)

// HandleLogin handles the "login" command.
func HandleLogin(args Args) error {
	p := NewArgParser(args.Raw)

	sess, cleanup, err := OpenSession(args)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	if token := p.Flag("token"); token != "" {
		if err := sess.Auth.Login(ctx, token); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}
		return reportAuth(args, sess, "Token stored")
	}

	username := p.Flag("u", "user", "username")
	if username == "" {
		if username, err = ReadPrompt("Username: "); err != nil {
			return errUsage("login requires -u USER when stdin is not a terminal")
		}
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return errUsage("username must not be empty")
	}

	password, err := ReadPassword("Password: ")
	if err != nil {
		return err
	}

	if err := Authenticate(ctx, sess, username, password); err != nil {
		return err
	}
	return reportAuth(args, sess, "Signed in as "+username)
}

// Authenticate signs in through the session gateway and translates the
// failure into the message shown to the user.
func Authenticate(ctx context.Context, sess *session.Session, username, password string) error {
	err := sess.Auth.Authenticate(ctx, sess.Gateway, username, password)
	if err == nil {
		return nil
	}
	if errors.Is(err, gateway.ErrInvalidCredentials) || errors.Is(err, gateway.ErrServiceUnavailable) {
		return errors.New(gateway.Describe(err))
	}
	return err
}

// HandleLogout handles the "logout" command. Logging out while signed out
// succeeds.
func HandleLogout(args Args) error {
	sess, cleanup, err := OpenSession(args)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	if err := sess.Auth.Logout(ctx); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return reportAuth(args, sess, "Signed out")
}

func reportAuth(args Args, sess *session.Session, message string) error {
	status := sess.Auth.Status()
	if args.JSON {
		return NewJSONResponse("auth", map[string]string{"status": status.String()}).Print()
	}
	if !args.Quiet {
		indicator := "ok"
		if status != auth.StatusAuthorized {
			indicator = "absent"
		}
		fmt.Println(RenderStatus(indicator) + " " + message)
	}
	return nil
}
