// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat implements the full-screen client on Bubble Tea.

The model is a thin adapter over a session.Session: it never keeps its own
copy of the conversation or the credential, it renders whatever the
managers report and runs every network call as a tea.Cmd.

# Screens

  - ScreenChat - the conversation, a pending marker and the question input
  - ScreenLogin - administrator sign-in
  - ScreenAdd - title and body of content to add

Switching to ScreenAdd goes through the access guard. Without a credential
the guard redirects to ScreenLogin, and a successful sign-in continues to
the screen that was asked for. A request made while authorization is still
loading waits for it instead of flashing the sign-in form.

# State changes

The managers report changes through Subscribe callbacks, and the store
watcher through Model.Notify. Both feed one buffered channel that the model
drains with waitForEvent:

	m := chat.New(sess, styles.NewThemeFor(cfg.UI.Theme))
	p := tea.NewProgram(m, tea.WithAltScreen())
	err := sess.Watch(ctx, func(key string) { m.Notify(chat.StoreChangedMsg{Key: key}) })
	_, err = p.Run()

# Slash commands

	/add [title]   add content (guarded)
	/login [user]  sign in
	/logout        sign out
	/clear         delete the conversation
	/export [file] save the conversation as .md or .html
	/help          toggle help
	/quit          exit
*/
package chat
