package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/export-sentry-issue/internal/credentials"
	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

// Environment variables read by ApplyEnv and EnvCredential.
const (
	EnvSettingsPath  = "EXPORT_SENTRY_ISSUE_SETTINGS"
	EnvOutputDir     = "OUTPUT_DIR"
	EnvHostOutputDir = "HOST_OUTPUT_DIR"
	EnvToken         = "SENTRY_TOKEN"
	EnvBaseURL       = "SENTRY_BASE_URL"
)

// Config holds the process settings for export-sentry-issue.
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	Audit       AuditConfig       `yaml:"audit"`
	Export      ExportConfig      `yaml:"export"`
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
}

// CredentialsConfig locates the credential file.
type CredentialsConfig struct {
	Path string `yaml:"path"`
}

// AuditConfig controls the export history log.
type AuditConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// ExportConfig controls where reports are written and how events are found.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
	// HostOutputDir is how OutputDir appears to the user, when the process
	// runs in a container with OutputDir mounted from the host.
	HostOutputDir string `yaml:"host_output_dir"`
	EventFallback string `yaml:"event_fallback"`
}

// FallbackPolicy returns the parsed event fallback policy. Call Validate
// first; an invalid value yields FallbackAny.
func (e *ExportConfig) FallbackPolicy() sentry.FallbackPolicy {
	p, err := sentry.ParseFallbackPolicy(e.EventFallback)
	if err != nil {
		return sentry.FallbackAny
	}
	return p
}

// HTTPConfig controls the Sentry API client.
type HTTPConfig struct {
	Timeout   string `yaml:"timeout"`
	UserAgent string `yaml:"user_agent"`
}

// TimeoutDuration parses the configured timeout or returns the default.
func (h *HTTPConfig) TimeoutDuration() time.Duration {
	if h.Timeout != "" {
		dur, err := time.ParseDuration(h.Timeout)
		if err == nil && dur > 0 {
			return dur
		}
	}
	return sentry.DefaultTimeout
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level to slog. Unknown values give Warn.
func (l *LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Credentials: CredentialsConfig{
			Path: filepath.Join(home, ".config", "export-sentry-issue", "config.json"),
		},
		Audit: AuditConfig{
			Path:    filepath.Join(home, ".local", "share", "export-sentry-issue", "audit.jsonl"),
			Enabled: true,
		},
		Export: ExportConfig{
			EventFallback: "any",
		},
		HTTP: HTTPConfig{
			Timeout:   sentry.DefaultTimeout.String(),
			UserAgent: sentry.DefaultUserAgent,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load reads the settings from EXPORT_SENTRY_ISSUE_SETTINGS when set, else
// from the standard location (~/.config/export-sentry-issue/settings.yaml).
// If the file doesn't exist, returns the default config.
func Load() (*Config, error) {
	if p := os.Getenv(EnvSettingsPath); p != "" {
		return LoadFrom(expandHome(p))
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(filepath.Join(home, ".config", "export-sentry-issue", "settings.yaml"))
}

// LoadFrom reads the settings from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}

	// Expand ~ in local paths.
	cfg.Credentials.Path = expandHome(cfg.Credentials.Path)
	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.Export.OutputDir = expandHome(cfg.Export.OutputDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays the output directory variables on the settings.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvOutputDir); v != "" {
		c.Export.OutputDir = v
	}
	if v := getenv(EnvHostOutputDir); v != "" {
		c.Export.HostOutputDir = v
	}
}

// Validate rejects values that cannot be used.
func (c *Config) Validate() error {
	if _, err := sentry.ParseFallbackPolicy(c.Export.EventFallback); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q (want debug, info, warn or error)", c.Log.Level)
	}
	if c.Credentials.Path == "" {
		return fmt.Errorf("credentials.path must not be empty")
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit.path must not be empty when audit is enabled")
	}
	return nil
}

// EnvCredential returns the credential layer supplied by SENTRY_TOKEN and
// SENTRY_BASE_URL.
func EnvCredential(getenv func(string) string) credentials.Credential {
	return credentials.Credential{
		Token:   getenv(EnvToken),
		BaseURL: getenv(EnvBaseURL),
	}
}

// ConfigPath returns the settings file path Load would read.
func ConfigPath() string {
	if p := os.Getenv(EnvSettingsPath); p != "" {
		return expandHome(p)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "export-sentry-issue", "settings.yaml")
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, p[1:])
}
