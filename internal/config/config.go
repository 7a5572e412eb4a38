// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ragclient/internal/store"
	"github.com/jeranaias/ragclient/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete ragclient configuration.
type Config struct {
	Backend      BackendConfig      `toml:"backend" json:"backend"`
	Store        StoreConfig        `toml:"store" json:"store"`
	Conversation ConversationConfig `toml:"conversation" json:"conversation"`
	Content      ContentConfig      `toml:"content" json:"content"`
	UI           UIConfig           `toml:"ui" json:"ui"`

	// Development backend
	Server ServerConfig `toml:"server" json:"server"`
}

// BackendConfig locates the knowledge service.
type BackendConfig struct {
	URL            string `toml:"url" json:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds" json:"timeout_seconds"` // 0 = transport default
	UserAgent      string `toml:"user_agent" json:"user_agent"`
}

// Timeout returns the request timeout, zero meaning none.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `toml:"backend" json:"backend"` // file | sqlite | bolt | memory
	DataDir string `toml:"data_dir" json:"data_dir"`
}

// ConversationConfig bounds the message log.
type ConversationConfig struct {
	MaxMessages int `toml:"max_messages" json:"max_messages"` // 0 = unbounded
}

// ContentConfig controls ingest submissions.
type ContentConfig struct {
	Source           string `toml:"source" json:"source"`
	BannerTTLSeconds int    `toml:"banner_ttl_seconds" json:"banner_ttl_seconds"`
}

// BannerTTL returns how long ingest banners stay visible.
func (c ContentConfig) BannerTTL() time.Duration {
	return time.Duration(c.BannerTTLSeconds) * time.Second
}

// UIConfig controls presentation.
type UIConfig struct {
	Theme          string `toml:"theme" json:"theme"` // dark | light | auto
	RenderMarkdown bool   `toml:"render_markdown" json:"render_markdown"`
	Citations      string `toml:"citations" json:"citations"` // render | strip
}

// ServerConfig configures the development backend started by "ragclient serve".
type ServerConfig struct {
	Addr               string   `toml:"addr" json:"addr"`
	Username           string   `toml:"username" json:"username"`
	Password           string   `toml:"password" json:"password"`
	JWTSecret          string   `toml:"jwt_secret" json:"jwt_secret"`
	TokenTTLHours      int      `toml:"token_ttl_hours" json:"token_ttl_hours"`
	LoginRatePerMinute int      `toml:"login_rate_per_minute" json:"login_rate_per_minute"`
	CORSOrigins        []string `toml:"cors_origins" json:"cors_origins"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:       "http://localhost:8000",
			UserAgent: "ragclient",
		},
		Store: StoreConfig{
			Backend: store.BackendFile,
		},
		Content: ContentConfig{
			Source:           "cli",
			BannerTTLSeconds: 5,
		},
		UI: UIConfig{
			Theme:          "dark",
			RenderMarkdown: true,
			Citations:      "render",
		},
		Server: ServerConfig{
			Addr:               "127.0.0.1:8000",
			Username:           "admin@example.com",
			TokenTTLHours:      24,
			LoginRatePerMinute: 10,
			CORSOrigins:        []string{"*"},
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ragclient configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragclient"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir returns the directory holding session state and logs.
func (c *Config) DataDir() (string, error) {
	if c.Store.DataDir != "" {
		return c.Store.DataDir, nil
	}
	return ConfigDir()
}

// ensureSecurePermissions tightens config files to 0600.
// SECURITY: Config files may hold the development server password and JWT secret.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads configuration from path, or from the default locations when
// path is empty. The default TOML file is tried first, then JSON, then
// built-in defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromPath(path)
	}

	for _, locate := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		p, err := locate()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(p); statErr == nil {
			return LoadFromPath(p)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are decoded as JSON; anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes the JSON file at path over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// SetDefaults fills zero values that have a meaningful default.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Backend.UserAgent == "" {
		c.Backend.UserAgent = defaults.Backend.UserAgent
	}
	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Content.Source == "" {
		c.Content.Source = defaults.Content.Source
	}
	if c.Content.BannerTTLSeconds == 0 {
		c.Content.BannerTTLSeconds = defaults.Content.BannerTTLSeconds
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.Citations == "" {
		c.UI.Citations = defaults.UI.Citations
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.Username == "" {
		c.Server.Username = defaults.Server.Username
	}
	if c.Server.TokenTTLHours == 0 {
		c.Server.TokenTTLHours = defaults.Server.TokenTTLHours
	}
	if c.Server.LoginRatePerMinute == 0 {
		c.Server.LoginRatePerMinute = defaults.Server.LoginRatePerMinute
	}
	if c.Server.CORSOrigins == nil {
		c.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# ragclient configuration file\n")
	buf.WriteString("# Generated by ragclient - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg to path as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Save writes cfg to path, choosing the format from the extension. An empty
// path saves to the default TOML location.
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := ConfigPathTOML()
		if err != nil {
			return err
		}
		path = p
	}
	if strings.HasSuffix(path, ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every setting and returns ValidateErrors listing all
// problems found.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Backend
	if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("backend.url", "invalid URL '%s', must be http(s)://host[:port]", c.Backend.URL)
	}
	if c.Backend.TimeoutSeconds < 0 {
		add("backend.timeout_seconds", "must be >= 0, got %d", c.Backend.TimeoutSeconds)
	}

	// Store
	validBackend := false
	for _, b := range store.Backends() {
		if c.Store.Backend == b {
			validBackend = true
		}
	}
	if !validBackend {
		add("store.backend", "invalid backend '%s', must be one of: %s", c.Store.Backend, strings.Join(store.Backends(), ", "))
	}

	// Conversation
	if c.Conversation.MaxMessages < 0 {
		add("conversation.max_messages", "must be >= 0, got %d", c.Conversation.MaxMessages)
	} else if c.Conversation.MaxMessages == 1 {
		add("conversation.max_messages", "must be 0 (unbounded) or at least 2 to keep a question with its answer")
	}

	// Content
	if c.Content.BannerTTLSeconds < 0 {
		add("content.banner_ttl_seconds", "must be >= 0, got %d", c.Content.BannerTTLSeconds)
	}

	// UI
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}
	switch c.UI.Citations {
	case "render", "strip":
	default:
		add("ui.citations", "invalid mode '%s', must be one of: render, strip", c.UI.Citations)
	}

	// Server
	if c.Server.Addr != "" {
		if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil || port == "" {
			add("server.addr", "invalid address '%s', expected host:port", c.Server.Addr)
		} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
			add("server.addr", "invalid port '%s'", port)
		}
	}
	if c.Server.TokenTTLHours < 0 {
		add("server.token_ttl_hours", "must be >= 0, got %d", c.Server.TokenTTLHours)
	}
	if c.Server.LoginRatePerMinute < 0 {
		add("server.login_rate_per_minute", "must be >= 0, got %d", c.Server.LoginRatePerMinute)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - RAGCLIENT_URL: backend.url
//   - RAGCLIENT_STORE: store.backend
//   - RAGCLIENT_DATA_DIR: store.data_dir
//   - RAGCLIENT_MAX_MESSAGES: conversation.max_messages
//   - RAGCLIENT_SOURCE: content.source
//   - RAGCLIENT_SERVER_ADDR: server.addr
//   - RAGCLIENT_ADMIN_USERNAME: server.username
//   - RAGCLIENT_ADMIN_PASSWORD: server.password
//   - RAGCLIENT_JWT_SECRET: server.jwt_secret
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RAGCLIENT_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("RAGCLIENT_STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("RAGCLIENT_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv("RAGCLIENT_MAX_MESSAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Conversation.MaxMessages = n
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring RAGCLIENT_MAX_MESSAGES=%q: not an integer\n", v)
		}
	}
	if v := os.Getenv("RAGCLIENT_SOURCE"); v != "" {
		c.Content.Source = v
	}
	if v := os.Getenv("RAGCLIENT_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("RAGCLIENT_ADMIN_USERNAME"); v != "" {
		c.Server.Username = v
	}
	if v := os.Getenv("RAGCLIENT_ADMIN_PASSWORD"); v != "" {
		c.Server.Password = v
	}
	if v := os.Getenv("RAGCLIENT_JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by dotted key, e.g. "backend.url".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by dotted key. String values are converted to the
// field's type; comma-separated strings fill list fields.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag equals name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue assigns value to field with string conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.TrimSpace(strVal))
			if err != nil {
				lower := strings.ToLower(strVal)
				boolVal = lower == "yes" || lower == "on"
				if !boolVal && lower != "no" && lower != "off" {
					return fmt.Errorf("invalid boolean value: %q", strVal)
				}
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(strVal, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Keys returns every settable key in dot notation, sorted.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
			if tag == "" {
				continue
			}
			if t.Field(i).Type.Kind() == reflect.Struct {
				walk(t.Field(i).Type, prefix+tag+".")
				continue
			}
			keys = append(keys, prefix+tag)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.CORSOrigins != nil {
		clone.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	}
	return &clone
}

// Redacted returns a copy with secrets replaced.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Server.Password != "" {
		safe.Server.Password = "[REDACTED]"
	}
	if safe.Server.JWTSecret != "" {
		safe.Server.JWTSecret = "[REDACTED]"
	}
	return safe
}

// String returns the configuration as indented JSON with secrets redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
