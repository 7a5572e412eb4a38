// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Conversation log command for ragclient.
//
// Command: history [--format text|json|yaml] [--export FILE.md|FILE.html] [--clear [--yes]]
// Aliases: log
//
// Examples:
//   ragclient history
//   ragclient history --format yaml > chat.yaml
//   ragclient history --export chat.html
//   ragclient history --clear --yes
package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/ragclient/internal/export"
	"github.com/jeranaias/ragclient/internal/model"
)

// History output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// HandleHistory handles the "history" command.
func HandleHistory(args Args) error {
	p := NewArgParser(args.Raw, "clear", "yes", "y")
	format := strings.ToLower(p.FlagOrDefault(FormatText, "format", "f"))
	if args.JSON {
		format = FormatJSON
	}
	if format != FormatText && format != FormatJSON && format != FormatYAML {
		return errUsage("unknown format %q (use text, json or yaml)", format)
	}

	sess, cleanup, err := OpenSession(args)
	if err != nil {
		return err
	}
	defer cleanup()

	if p.BoolFlag("clear") {
		ctx, cancel := signalContext()
		defer cancel()
		n := sess.Conversation.Len()
		confirmed, err := RequireConfirmation(p.BoolFlag("yes", "y"), fmt.Sprintf("clear %d messages", n), args.JSON)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := sess.Conversation.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		if !args.Quiet {
			fmt.Printf("%s Cleared %d messages\n", RenderStatus("ok"), n)
		}
		return nil
	}

	if path := p.Flag("export", "o"); path != "" {
		return exportHistory(sess.Conversation.Messages(), path, sess.Config.UI.Theme, args)
	}

	out, err := FormatHistory(sess.Conversation.Messages(), format, NewRenderer(sess.Config.UI, GetTerminalWidth()))
	if err != nil {
		return err
	}
	if format != FormatText {
		out = Highlight(out, format, sess.Config.UI.Theme)
	}
	fmt.Print(out)
	return nil
}

// FormatHistory renders log in the given format. Text output uses r.
func FormatHistory(log model.Log, format string, r *Renderer) (string, error) {
	if log == nil {
		log = model.Log{}
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(log, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode history: %w", err)
		}
		return string(data) + "\n", nil

	case FormatYAML:
		data, err := yaml.Marshal(log)
		if err != nil {
			return "", fmt.Errorf("failed to encode history: %w", err)
		}
		return string(data), nil

	default:
		if len(log) == 0 {
			return RenderConditional(DimStyle, "No conversation yet.") + "\n", nil
		}
		var b strings.Builder
		for i, msg := range log {
			if i > 0 && msg.Role == model.RoleUser {
				b.WriteString(RenderSeparator() + "\n")
			}
			b.WriteString(RenderConditional(DimStyle, msg.Timestamp.Local().Format("2006-01-02 15:04")) + "\n")
			b.WriteString(r.Message(msg) + "\n")
		}
		return b.String(), nil
	}
}

// exportHistory writes log to path in the format its extension names.
func exportHistory(log model.Log, path, theme string, args Args) error {
	opts := export.DefaultOptions()
	opts.Theme = theme
	exporter, err := export.ForPath(path, opts)
	if err != nil {
		return errUsage("%v", err)
	}
	if err := export.WriteFile(log, path, exporter); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history", map[string]any{
			"path":      path,
			"messages":  len(log),
			"mime_type": exporter.MimeType(),
		}).Print()
	}
	if !args.Quiet {
		fmt.Printf("%s Exported %d messages to %s\n", RenderStatus("ok"), len(log), path)
	}
	return nil
}
