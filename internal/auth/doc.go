// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth tracks the credential token that gates privileged actions.
//
// The token is opaque. Its presence alone means the client is authorized;
// nothing here inspects its contents or expiry. The token is persisted under
// the admin_token key so it survives restarts.
package auth
