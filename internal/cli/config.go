// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command for ragclient.
//
// Command: config [show|set|get|path|keys]
//
// Examples:
//   ragclient config                               Show effective configuration
//   ragclient config set backend.url http://rag:8000
//   ragclient config set conversation.max_messages 200
//   ragclient config get store.backend
//   ragclient config path
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ragclient/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch strings.ToLower(args.Subcommand) {
	case "", "show":
		return showConfig(args)
	case "set":
		return setConfig(args)
	case "get":
		return getConfig(args)
	case "path":
		path, err := resolveConfigPath(args.ConfigPath)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config", map[string]string{"path": path}).Print()
		}
		fmt.Println(path)
		return nil
	case "keys":
		for _, k := range config.Keys() {
			fmt.Println(k)
		}
		return nil
	default:
		return errUsage("unknown config subcommand %q (use show, get, set, path or keys)", args.Subcommand)
	}
}

// showConfig prints the effective configuration with secrets redacted.
func showConfig(args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	safe := cfg.Redacted()
	if args.JSON {
		return NewJSONResponse("config", safe).Print()
	}

	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(safe); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Print(Highlight(b.String(), "toml", cfg.UI.Theme))
	return nil
}

func getConfig(args Args) error {
	if args.ConfigKey == "" {
		return errUsage("usage: ragclient config get KEY")
	}
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	val, err := cfg.Redacted().Get(args.ConfigKey)
	if err != nil {
		return errUsage("%v", err)
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]any{args.ConfigKey: val}).Print()
	}
	fmt.Println(val)
	return nil
}

// setConfig updates one key in the config file. Environment overrides are
// not applied so they are never written to disk.
func setConfig(args Args) error {
	if args.ConfigKey == "" || args.Subcommand == "" {
		return errUsage("usage: ragclient config set KEY VALUE")
	}
	path, err := resolveConfigPath(args.ConfigPath)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		load := config.LoadTOML
		if strings.HasSuffix(path, ".json") {
			load = config.LoadJSON
		}
		if err := load(cfg, path); err != nil {
			return err
		}
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return errUsage("%v", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		var verrs config.ValidateErrors
		if errors.As(err, &verrs) {
			return errUsage("%v", verrs)
		}
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	if !args.Quiet && !args.JSON {
		fmt.Printf("%s Set %s in %s\n", RenderStatus("ok"), args.ConfigKey, path)
	}
	return nil
}

// resolveConfigPath returns the explicit path, an existing TOML or JSON
// file, or the default TOML location.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	if jsonPath, err := config.ConfigPathJSON(); err == nil {
		if _, err := os.Stat(jsonPath); err == nil {
			return jsonPath, nil
		}
	}
	return tomlPath, nil
}
