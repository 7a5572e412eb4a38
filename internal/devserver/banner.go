// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// PrintBanner writes the startup summary. generatedPassword is shown only
// when the server made one up.
func PrintBanner(w io.Writer, version, addr, username, generatedPassword string) {
	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprintln(w, "\n    ragclient development backend")
	gray.Fprintf(w, "    version: %s\n\n", version)

	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Listening: http://%s\n", addr)
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Admin:     %s\n", username)
	if generatedPassword != "" {
		yellow.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "Password:  %s ", generatedPassword)
		gray.Fprintln(w, "(generated, set server.password to keep it)")
	}
	fmt.Fprintln(w)
}
