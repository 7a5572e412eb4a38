// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Development backend command for ragclient.
//
// Command: serve [--addr HOST:PORT] [--user USER] [--password PASS]
//
// Runs an in-memory knowledge service implementing /health, /login,
// /ingest and /query so the client can be used without the production
// backend. Content does not survive a restart.
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/ragclient/internal/devserver"
)

// HandleServe handles the "serve" command.
func HandleServe(args Args) error {
	p := NewArgParser(args.Raw)

	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	srvCfg := cfg.Server
	if addr := p.Flag("addr"); addr != "" {
		srvCfg.Addr = addr
	}
	if user := p.Flag("u", "user"); user != "" {
		srvCfg.Username = user
	}
	if pw := p.Flag("password"); pw != "" {
		srvCfg.Password = pw
	}

	var generated string
	if srvCfg.Password == "" {
		if generated, err = devserver.GeneratePassword(); err != nil {
			return err
		}
		srvCfg.Password = generated
	}

	srv, err := devserver.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if !args.Quiet {
		devserver.PrintBanner(os.Stderr, Version, srvCfg.Addr, srvCfg.Username, generated)
	}

	ctx, cancel := signalContext()
	defer cancel()
	return srv.ListenAndServe(ctx)
}
