// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates and saves ragclient configuration.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the caller through Set)
//   - Environment variables (RAGCLIENT_*)
//   - ~/.ragclient/config.toml, or the file passed with --config
//   - ~/.ragclient/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := gateway.New(cfg.Backend.URL)
package config
