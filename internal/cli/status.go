// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command for ragclient.
//
// Command: status
// Aliases: s
//
// Shows backend reachability, sign-in state with token expiry, the store
// in use and the size of the conversation and log file.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeranaias/ragclient/internal/config"
	"github.com/jeranaias/ragclient/internal/session"
)

// TokenInfo is what can be read from a token without its signing key.
type TokenInfo struct {
	Subject string
	Expires *time.Time
}

// InspectToken decodes the claims of a JWT without verifying the signature.
// Tokens that are not JWTs yield an empty TokenInfo and ok=false.
func InspectToken(token string) (TokenInfo, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, false
	}
	var info TokenInfo
	info.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.Expires = &t
	}
	return info, true
}

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	sess, cleanup, err := OpenSession(args)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := collectStatus(ctx, sess, args.ConfigPath)
	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}
	printStatus(data)
	return nil
}

func collectStatus(ctx context.Context, sess *session.Session, configPath string) StatusData {
	data := StatusData{
		BackendURL:   sess.Gateway.BaseURL(),
		AuthStatus:   sess.Auth.Status().String(),
		StoreBackend: sess.Config.Store.Backend,
		Messages:     sess.Conversation.Len(),
		Exchanges:    sess.Conversation.Messages().Exchanges(),
		ConfigPath:   configPath,
	}

	if err := sess.Gateway.Health(ctx); err != nil {
		data.BackendError = err.Error()
	} else {
		data.BackendOnline = true
	}

	if info, ok := InspectToken(sess.Auth.Token()); ok {
		data.TokenSubject = info.Subject
		data.TokenExpires = info.Expires
		data.TokenExpired = info.Expires != nil && time.Now().After(*info.Expires)
	}

	if dir, err := sess.Config.DataDir(); err == nil {
		data.DataDir = dir
		if st, err := os.Stat(filepath.Join(dir, session.LogFileName)); err == nil {
			data.LogBytes = st.Size()
		}
	}
	if data.ConfigPath == "" {
		if p, err := config.ConfigPathTOML(); err == nil {
			data.ConfigPath = p
		}
	}
	return data
}

func printStatus(d StatusData) {
	fmt.Println(RenderConditional(TitleStyle, "ragclient status"))

	backend := "ok"
	detail := "reachable"
	if !d.BackendOnline {
		backend = "error"
		detail = d.BackendError
	}
	fmt.Println(RenderField("Backend", d.BackendURL))
	fmt.Println(RenderField("", RenderStatus(backend)+" "+detail))

	fmt.Println(RenderField("Sign-in", RenderStatus(d.AuthStatus)+" "+d.AuthStatus))
	if d.TokenSubject != "" {
		fmt.Println(RenderField("Signed in as", d.TokenSubject))
	}
	if d.TokenExpires != nil {
		remaining := time.Until(*d.TokenExpires)
		when := d.TokenExpires.Local().Format("2006-01-02 15:04")
		if d.TokenExpired {
			fmt.Println(RenderField("Token expired", when+" ("+formatDuration(remaining)+" ago)"))
		} else {
			fmt.Println(RenderField("Token expires", when+" (in "+formatDuration(remaining)+")"))
		}
	}

	fmt.Println(RenderField("Store", d.StoreBackend))
	fmt.Println(RenderField("Data directory", d.DataDir))
	fmt.Println(RenderField("Conversation", fmt.Sprintf("%d messages, %d exchanges", d.Messages, d.Exchanges)))
	fmt.Println(RenderField("Log file", formatBytes(d.LogBytes)))
	fmt.Println(RenderField("Config", d.ConfigPath))
}
