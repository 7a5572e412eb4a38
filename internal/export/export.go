// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/ragclient/internal/model"
	"github.com/jeranaias/ragclient/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a conversation log into a document format.
type Exporter interface {
	// Export converts the log to the target format and returns the content.
	Export(log model.Log) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrEmptyLog is returned when there is nothing to export.
var ErrEmptyLog = errors.New("conversation has no messages")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// Title heads the document. Empty derives one from the first question.
	Title string

	// IncludeMetadata adds a header with message count and time span.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool

	// IncludeSources lists the cited excerpts under each answer.
	IncludeSources bool

	// Theme for HTML export ("light" or "dark").
	Theme string

	// Now stamps the footer. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeSources:    true,
		Theme:             "dark",
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Options) title(log model.Log) string {
	if o.Title != "" {
		return o.Title
	}
	return Title(log)
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ForPath picks an exporter from the extension of path. Unknown extensions
// are an error.
func ForPath(path string, opts *Options) (Exporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return NewMarkdownExporter(opts), nil
	case ".html", ".htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use .md or .html)", filepath.Ext(path))
	}
}

// WriteFile exports log to path, creating parent directories as needed.
func WriteFile(log model.Log, path string, exporter Exporter) error {
	content, err := exporter.Export(log)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, content, 0644, 0755); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// DefaultFilename builds "conversation_<title>_<stamp><ext>" for log.
func DefaultFilename(log model.Log, exporter Exporter, now time.Time) string {
	return fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(Title(log)),
		now.Format("20060102_150405"),
		exporter.FileExtension(),
	)
}

// Title derives a document title from the first user message.
func Title(log model.Log) string {
	for _, m := range log {
		if m.Role == model.RoleUser {
			if t := m.Preview(60); t != "" {
				return t
			}
		}
	}
	return "Conversation"
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	var b strings.Builder
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}

func span(log model.Log) (time.Time, time.Time) {
	return log[0].Timestamp, log[len(log)-1].Timestamp
}
