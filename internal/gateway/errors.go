// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"errors"
	"fmt"
)

// Outcome classes. Every error returned by Client wraps exactly one of these.
var (
	// ErrServiceUnavailable covers transport failures, malformed responses
	// and non-success statuses from /query and /health.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrUnauthenticated is returned by Ingest when no token is supplied.
	// No request is sent.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrIngestFailed covers every failed ingest request, including 401/403.
	ErrIngestFailed = errors.New("ingest failed")

	// ErrInvalidCredentials is returned by Login for any non-success status.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StatusError records a non-success HTTP response.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// classify wraps cause under the outcome sentinel.
func classify(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// User-facing texts for failed requests.
const (
	InvalidCredentialsText = "Invalid credentials"
	UnreachableText        = "Failed to connect to backend."
	NotSignedInText        = "Not signed in."
)

// Describe returns the user-facing text for an error returned by Client.
// Errors of other origin keep their own text.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return InvalidCredentialsText
	case errors.Is(err, ErrServiceUnavailable):
		return UnreachableText
	case errors.Is(err, ErrUnauthenticated):
		return NotSignedInText
	default:
		return err.Error()
	}
}
