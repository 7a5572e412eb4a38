// json_output.go - JSON output support for scripting.
//
// Every command accepts --json and then writes one JSONResponse to stdout.
// Human-readable messages go to stderr in that mode.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/ragclient/internal/model"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// StderrPrintf prints a message to stderr (for human-readable output in JSON mode).
func StderrPrintf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// AskData represents the data returned by the ask command.
type AskData struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	IsError  bool           `json:"is_error"`
	Sources  []model.Source `json:"sources"`
	Metrics  *model.Metrics `json:"metrics,omitempty"`
}

// StatusData represents the data returned by the status command.
type StatusData struct {
	BackendURL    string     `json:"backend_url"`
	BackendOnline bool       `json:"backend_online"`
	BackendError  string     `json:"backend_error,omitempty"`
	AuthStatus    string     `json:"auth_status"`
	TokenSubject  string     `json:"token_subject,omitempty"`
	TokenExpires  *time.Time `json:"token_expires,omitempty"`
	TokenExpired  bool       `json:"token_expired,omitempty"`
	StoreBackend  string     `json:"store_backend"`
	DataDir       string     `json:"data_dir"`
	Messages      int        `json:"messages"`
	Exchanges     int        `json:"exchanges"`
	LogBytes      int64      `json:"log_bytes"`
	ConfigPath    string     `json:"config_path,omitempty"`
}

// AddData represents the data returned by the add command.
type AddData struct {
	DocID  string `json:"doc_id,omitempty"`
	Status string `json:"status"`
}
