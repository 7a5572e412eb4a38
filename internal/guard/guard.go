// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard decides whether navigation to a route is allowed.
package guard

import "strings"

// Route names a navigable screen.
type Route string

const (
	RouteQuery      Route = "query"
	RouteAddContent Route = "add-content"
	RouteLogin      Route = "login"
)

// Decision is the result of Decide. A zero Redirect means allow.
type Decision struct {
	Redirect Route
}

// Allowed reports whether navigation may proceed.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// guarded lists routes that require authorization.
var guarded = map[Route]bool{
	RouteAddContent: true,
}

// Decide returns the navigation decision for route. Only add-content is
// guarded; unknown routes are allowed.
func Decide(isAuthorized bool, route Route) Decision {
	if guarded[route] && !isAuthorized {
		return Decision{Redirect: RouteLogin}
	}
	return Decision{}
}

// ParseRoute maps user input such as "add", "/add-content" or "ask" to a
// route. ok is false for input that names no route.
func ParseRoute(s string) (Route, bool) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "/")) {
	case "query", "ask", "chat", "":
		return RouteQuery, true
	case "add-content", "add", "ingest":
		return RouteAddContent, true
	case "login":
		return RouteLogin, true
	default:
		return "", false
	}
}
