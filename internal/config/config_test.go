// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfig_Default tests that Default() returns a valid config.
func TestConfig_Default(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 0, cfg.Conversation.MaxMessages, "unbounded by default")
	assert.Equal(t, "cli", cfg.Content.Source)
	assert.Equal(t, 5*time.Second, cfg.Content.BannerTTL())
	assert.Equal(t, time.Duration(0), cfg.Backend.Timeout())
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr)
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, "", false},
		{"bad url scheme", func(c *Config) { c.Backend.URL = "ftp://host" }, "backend.url", true},
		{"url without host", func(c *Config) { c.Backend.URL = "http://" }, "backend.url", true},
		{"negative timeout", func(c *Config) { c.Backend.TimeoutSeconds = -1 }, "backend.timeout_seconds", true},
		{"unknown store", func(c *Config) { c.Store.Backend = "redis" }, "store.backend", true},
		{"sqlite store", func(c *Config) { c.Store.Backend = "sqlite" }, "", false},
		{"negative cap", func(c *Config) { c.Conversation.MaxMessages = -5 }, "conversation.max_messages", true},
		{"cap of one", func(c *Config) { c.Conversation.MaxMessages = 1 }, "conversation.max_messages", true},
		{"cap of two", func(c *Config) { c.Conversation.MaxMessages = 2 }, "", false},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme", true},
		{"bad citations", func(c *Config) { c.UI.Citations = "hide" }, "ui.citations", true},
		{"bad server addr", func(c *Config) { c.Server.Addr = "localhost" }, "server.addr", true},
		{"ipv6 server addr", func(c *Config) { c.Server.Addr = "[::1]:8000" }, "", false},
		{"bad port", func(c *Config) { c.Server.Addr = "localhost:99999" }, "server.addr", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	c := Default()
	c.UI.Theme = "x"
	c.UI.Citations = "y"
	err := c.Validate()

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "ui.theme")
	assert.Contains(t, err.Error(), "ui.citations")
}

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[backend]
url = "http://rag.internal:9000"

[store]
backend = "Bolt"

[conversation]
max_messages = 100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://rag.internal:9000", cfg.Backend.URL)
	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, 100, cfg.Conversation.MaxMessages)
	// Untouched sections keep their defaults.
	assert.Equal(t, "cli", cfg.Content.Source)
	assert.True(t, cfg.UI.RenderMarkdown)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions tightened")
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend":{"url":"https://rag.example.com"}}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://rag.example.com", cfg.Backend.URL)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"neon\"\n"), 0600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Backend.URL, cfg.Backend.URL)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RAGCLIENT_URL", "http://env:1234")
	t.Setenv("RAGCLIENT_STORE", "sqlite")
	t.Setenv("RAGCLIENT_DATA_DIR", "/tmp/rag")
	t.Setenv("RAGCLIENT_MAX_MESSAGES", "40")
	t.Setenv("RAGCLIENT_SOURCE", "ops")
	t.Setenv("RAGCLIENT_ADMIN_PASSWORD", "hunter2")
	t.Setenv("RAGCLIENT_JWT_SECRET", "s3cret")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://env:1234", cfg.Backend.URL)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/tmp/rag", cfg.Store.DataDir)
	assert.Equal(t, 40, cfg.Conversation.MaxMessages)
	assert.Equal(t, "ops", cfg.Content.Source)
	assert.Equal(t, "hunter2", cfg.Server.Password)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
}

func TestApplyEnvOverrides_BadInteger(t *testing.T) {
	t.Setenv("RAGCLIENT_MAX_MESSAGES", "lots")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 0, cfg.Conversation.MaxMessages)
}

// TestConfig_GetSet tests Get and Set with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("backend.url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", val)

	require.NoError(t, cfg.Set("conversation.max_messages", "50"))
	assert.Equal(t, 50, cfg.Conversation.MaxMessages)

	require.NoError(t, cfg.Set("ui.render-markdown", "off"))
	assert.False(t, cfg.UI.RenderMarkdown)

	require.NoError(t, cfg.Set("server.cors_origins", "http://a, http://b"))
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)

	_, err = cfg.Get("invalid.key")
	assert.Error(t, err)
	_, err = cfg.Get("backend")
	assert.Error(t, err, "sections are not values")
	assert.Error(t, cfg.Set("conversation.max_messages", "many"))
	assert.Error(t, cfg.Set("ui.render_markdown", "maybe"))
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "backend.url")
	assert.Contains(t, keys, "store.backend")
	assert.Contains(t, keys, "server.jwt_secret")
	for _, k := range keys {
		_, err := Default().Get(k)
		assert.NoError(t, err, k)
	}
}

// TestConfig_Clone tests that Clone creates an independent copy.
func TestConfig_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()

	clone.Backend.URL = "http://other"
	clone.Server.CORSOrigins[0] = "http://mutated"

	assert.Equal(t, "http://localhost:8000", original.Backend.URL)
	assert.Equal(t, "*", original.Server.CORSOrigins[0])
}

func TestConfig_StringRedacts(t *testing.T) {
	cfg := Default()
	cfg.Server.Password = "hunter2"
	cfg.Server.JWTSecret = "s3cret"

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "hunter2", cfg.Server.Password, "original untouched")
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Backend.URL = "http://saved:8000"
	cfg.Conversation.MaxMessages = 20

	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# ragclient configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://saved:8000", loaded.Backend.URL)
	assert.Equal(t, 20, loaded.Conversation.MaxMessages)
}

func TestDataDir(t *testing.T) {
	cfg := Default()
	cfg.Store.DataDir = "/var/lib/ragclient"
	dir, err := cfg.DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ragclient", dir)
}
