// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the color palette and themes shared by the
command-line output and the full-screen client.

All colors are Lip Gloss AdaptiveColor values so they follow the terminal's
light or dark background.

# Colors (colors.go)

  - Purple - assistant messages and the brand mark
  - Cyan - the user prompt and citation markers
  - Emerald - success, signed in, backend online
  - Amber - pending replies and warnings
  - Rose - errors and failed ingests

Status is never shown by color alone. StatusIndicators carries an ASCII
marker for each state:

	styles.StatusIndicators.Success // "[OK]"
	styles.StatusIndicators.Error   // "[X]"

# Theme (theme.go)

Theme groups the Lip Gloss styles of the full-screen client: header, status
bar, message rendering, the input box, the sign-in form and banners.

	theme := styles.NewThemeFor(cfg.UI.Theme)
	theme.SetSize(width, height)
	if theme.GetLayoutMode() == styles.LayoutNarrow {
		// drop the shortcut hints
	}
*/
package styles
