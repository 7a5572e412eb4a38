// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command ragserver runs the development knowledge service on its own,
// for machines that only need the backend. It takes the same flags as
// "ragclient serve".
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/ragclient/internal/cli"
)

const version = "0.1.0"

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--help", "-h":
			printHelp()
			return
		case "--version":
			fmt.Printf("ragserver v%s\n", version)
			return
		}
	}

	cmd, args, err := cli.ParseArgs(append([]string{"serve"}, os.Args[1:]...))
	if err != nil {
		cli.PrintError(err)
		os.Exit(cli.ExitCode(err))
	}
	os.Exit(cli.Run(cmd, args))
}

func printHelp() {
	fmt.Println(`ragserver v` + version + `

Development knowledge service: /login, /ingest, /query and /health.

Usage:
  ragserver [--addr HOST:PORT] [-u USER] [--password PASS] [--config PATH]

Environment:
  RAGCLIENT_ADMIN_PASSWORD   administrator password (generated when unset)
  RAGCLIENT_JWT_SECRET       token signing key (random when unset)`)
}
