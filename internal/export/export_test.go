// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragclient/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleLog() model.Log {
	t0 := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return model.Log{
		model.NewUserMessage("What is <RAG>?", t0),
		model.NewAnswerMessage("Retrieval augmented generation [1]. See `retriever` [7].",
			&model.Metrics{TimeSeconds: 0.5, Tokens: 42, CostEstimate: 0.002},
			[]model.Source{{Text: "RAG combines search & generation.", Title: "Intro", Origin: "wiki", ChunkIndex: 3, Index: 1}},
			t0.Add(time.Second)),
		model.NewUserMessage("And then?", t0.Add(time.Minute)),
		model.NewErrorMessage("Sorry, something went wrong.", t0.Add(time.Minute+time.Second)),
	}
}

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		ext  string
	}{
		{"chat.md", ".md"},
		{"notes/CHAT.Markdown", ".md"},
		{"chat.html", ".html"},
		{"chat.htm", ".html"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e, err := ForPath(tt.path, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, e.FileExtension())
		})
	}

	_, err := ForPath("chat.pdf", nil)
	assert.Error(t, err)
}

func TestExport_EmptyLog(t *testing.T) {
	for _, e := range []Exporter{NewMarkdownExporter(nil), NewHTMLExporter(nil)} {
		_, err := e.Export(nil)
		assert.True(t, errors.Is(err, ErrEmptyLog), e.MimeType())
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(sampleLog())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: \"What is <RAG>?\"\n"))
	assert.Contains(t, md, "exchanges: 2\n")
	assert.Contains(t, md, "# What is <RAG>?")
	assert.Contains(t, md, "### [You]")
	assert.Contains(t, md, "### [Assistant]")
	assert.Contains(t, md, "### [Error]")
	assert.Contains(t, md, "> Sorry, something went wrong.")
	assert.Contains(t, md, "1. **Intro** (chunk 3)")
	assert.Contains(t, md, "<sub>Stats: 0.50s | 42 tokens | $0.002000</sub>")
	assert.Contains(t, md, "*Exported from ragclient on March 14, 2025 at 9:30 AM*")
}

func TestMarkdownExport_Options(t *testing.T) {
	opts := testOptions()
	opts.IncludeMetadata = false
	opts.IncludeSources = false
	opts.IncludeTimestamps = false
	opts.Title = "Weekly #sync"

	out, err := NewMarkdownExporter(opts).Export(sampleLog())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Weekly \\#sync\n"))
	assert.NotContains(t, md, "Sources")
	assert.Contains(t, md, "### [You]\n")
}

func TestHTMLExport(t *testing.T) {
	log := sampleLog()
	out, err := NewHTMLExporter(testOptions()).Export(log)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<title>What is &lt;RAG&gt;?</title>")
	assert.NotContains(t, page, "<RAG>")
	assert.Contains(t, page, `<body class="dark-theme">`)
	assert.Contains(t, page, "<code class=\"inline-code\">retriever</code>")
	assert.Contains(t, page, `<a class="cite" href="#src-`+log[1].ID+`-1">[1]</a>`)
	assert.Contains(t, page, "[7].", "unresolved markers stay plain")
	assert.NotContains(t, page, `-7">[7]</a>`)
	assert.Contains(t, page, `id="src-`+log[1].ID+`-1"`)
	assert.Contains(t, page, "search &amp; generation")
	assert.Contains(t, page, "message assistant-message error-message")
	assert.Contains(t, page, "<strong>Exchanges:</strong> 2")
}

func TestHTMLExport_CodeBlock(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	log := model.Log{
		model.NewUserMessage("show me", t0),
		model.NewAnswerMessage("Here:\n\n```go\nif a < b {}\n```\n\nDone.", nil, nil, t0),
	}
	opts := testOptions()
	opts.Theme = "light"

	out, err := NewHTMLExporter(opts).Export(log)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `<body class="light-theme">`)
	assert.Contains(t, page, `<div class="code-lang">go</div><pre><code class="language-go">if a &lt; b {}</code></pre>`)
	assert.Contains(t, page, "<p>Done.</p>")
	assert.NotContains(t, page, "\x00")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "chat.md")
	require.NoError(t, WriteFile(sampleLog(), path, NewMarkdownExporter(testOptions())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# What is <RAG>?")

	assert.Error(t, WriteFile(nil, path, NewMarkdownExporter(nil)))
}

func TestDefaultFilename(t *testing.T) {
	name := DefaultFilename(sampleLog(), NewHTMLExporter(nil), fixedNow)
	assert.Equal(t, "conversation_What_is_-RAG--_20250314_093000.html", name)
	assert.Equal(t, "conversation_Conversation_20250314_093000.md", DefaultFilename(nil, NewMarkdownExporter(nil), fixedNow))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, "conversation", sanitizeFilename(""))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("é", 80))), 50)
}
