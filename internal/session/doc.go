// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session assembles the client state from configuration.
//
// A Session owns the store, the request gateway and the managers built on
// them. Front ends open one session, restore it, and hand its managers to
// their views. Nothing in the core is global.
//
// # Usage
//
//	sess, err := session.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	sess.Restore(ctx)
//	sess.Conversation.Submit(ctx, "What is RAG?")
package session
