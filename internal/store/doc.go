// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the durable key/value adapters the session state
// managers persist through.
//
// Each manager owns exactly one key and does read-then-overwrite writes, so
// the adapters only need per-key atomicity. Four backends are available:
//
//   - file: a single JSON object file written atomically, with an advisory
//     lock for other processes and an fsnotify watcher that reports external
//     changes (the desktop analogue of browser local storage)
//   - sqlite: a kv table in a pure-Go SQLite database (the analogue of mobile
//     async storage)
//   - bolt: a bbolt bucket
//   - memory: process-scoped, nothing survives a restart (session storage)
//
// # Usage
//
//	st, err := store.Open(store.BackendFile, dataDir)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	token, found, err := st.Get(ctx, "admin_token")
package store
