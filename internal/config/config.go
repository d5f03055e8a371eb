// internal/config/config.go
//
// This package handles configuration and the .strata directory structure.
// The console keeps its config file, logs and default export directory in a
// .strata/ folder under the directory it was started from.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// StrataDir is the name of the directory we create in each project
	StrataDir = ".strata"

	defaultBaseURL    = "http://localhost:5000"
	defaultTimeout    = 30 * time.Second
	defaultCookieName = "connect.sid"
	defaultStagger    = 500 * time.Millisecond
	defaultLogLevel   = "info"
)

const defaultProjectConfigYAML = `# strata console configuration
version: 1

api:
  # Base URL of the planning API. Requests go to <base_url>/api/...
  base_url: http://localhost:5000
  # Web origin used to build registration links. Defaults to base_url.
  # origin: https://plan.example.com
  timeout: 30s

# Session cookie copied from a signed-in browser. Prefer STRATA_SESSION.
session:
  cookie_name: connect.sid
  # cookie_value: ""

export:
  # Relative paths resolve against the project directory.
  dir: .strata/exports
  # Delay between entities when exporting everything.
  stagger: 500ms

# One of: debug, info, warn, error.
log_level: info
`

// APIConfig points the console at the planning API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Origin  string        `yaml:"origin,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig names the authentication cookie.
type SessionConfig struct {
	CookieName  string `yaml:"cookie_name"`
	CookieValue string `yaml:"cookie_value,omitempty"`
}

// ExportConfig controls CSV export.
type ExportConfig struct {
	Dir     string        `yaml:"dir"`
	Stagger time.Duration `yaml:"stagger"`
}

// ProjectConfig models .strata/config.yaml.
type ProjectConfig struct {
	Version  int           `yaml:"version"`
	API      APIConfig     `yaml:"api"`
	Session  SessionConfig `yaml:"session"`
	Export   ExportConfig  `yaml:"export"`
	LogLevel string        `yaml:"log_level"`
}

// Overrides are read from the environment after the config file.
type Overrides struct {
	APIURL    string `env:"STRATA_API_URL"`
	Origin    string `env:"STRATA_ORIGIN"`
	Session   string `env:"STRATA_SESSION"`
	ExportDir string `env:"STRATA_EXPORT_DIR"`
	LogLevel  string `env:"STRATA_LOG_LEVEL"`
}

// Config holds the runtime configuration for the console.
type Config struct {
	// ProjectDir is the directory where the user ran `strata` from
	ProjectDir string

	// StrataProjectDir is ProjectDir/.strata
	StrataProjectDir string

	Project ProjectConfig
}

// InitStrataDir creates the .strata directory structure in the given project
// directory and writes a commented config.yaml when none exists.
//
// .strata/
// ├── config.yaml
// ├── logs/      <- strata.log and activity.log
// └── exports/   <- default CSV export target
func InitStrataDir(projectDir string) error {
	strataDir := filepath.Join(projectDir, StrataDir)
	dirs := []string{
		filepath.Join(strataDir, "logs"),
		filepath.Join(strataDir, "exports"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(strataDir, "config.yaml"))
}

// NewConfig loads .strata/config.yaml, then the .env files present in
// projectDir, then STRATA_* environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		StrataProjectDir: filepath.Join(projectDir, StrataDir),
		Project:          defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if _, err := LoadEnv([]string{
		filepath.Join(projectDir, ".env"),
		filepath.Join(projectDir, ".env.local"),
	}); err != nil {
		return nil, fmt.Errorf("config: load env files: %w", err)
	}
	var ovr Overrides
	if err := env.Parse(&ovr); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.apply(ovr); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads the files that exist and reports how many were read.
// Variables already set in the process win.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func (c *Config) apply(ovr Overrides) error {
	pc := &c.Project
	if v := strings.TrimSpace(ovr.APIURL); v != "" {
		pc.API.BaseURL = v
	}
	if v := strings.TrimSpace(ovr.Origin); v != "" {
		pc.API.Origin = v
	}
	if v := strings.TrimSpace(ovr.Session); v != "" {
		pc.Session.CookieValue = v
	}
	if v := strings.TrimSpace(ovr.ExportDir); v != "" {
		pc.Export.Dir = v
	}
	if v := strings.TrimSpace(ovr.LogLevel); v != "" {
		pc.LogLevel = v
	}
	pc.normalize(c.ProjectDir)
	if err := pc.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StrataProjectDir, "logs")
}

// ActivityLogPath returns the journal of user-visible outcomes.
func (c *Config) ActivityLogPath() string {
	return filepath.Join(c.LogsDir(), "activity.log")
}

// ExportDir returns the resolved CSV export directory.
func (c *Config) ExportDir() string {
	return c.Project.Export.Dir
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StrataProjectDir, "config.yaml")
}

// BaseURL returns the API base URL.
func (c *Config) BaseURL() string {
	return c.Project.API.BaseURL
}

// Origin returns the web origin, falling back to the API base URL.
func (c *Config) Origin() string {
	if c.Project.API.Origin != "" {
		return c.Project.API.Origin
	}
	return c.Project.API.BaseURL
}

// LogLevel returns the configured log level name.
func (c *Config) LogLevel() string {
	return c.Project.LogLevel
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.ProjectDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.API.BaseURL == "" {
		pc.API.BaseURL = defaultBaseURL
	}
	if pc.API.Timeout == 0 {
		pc.API.Timeout = defaultTimeout
	}
	if pc.Session.CookieName == "" {
		pc.Session.CookieName = defaultCookieName
	}
	if pc.Export.Dir == "" {
		pc.Export.Dir = filepath.Join(StrataDir, "exports")
	}
	if pc.Export.Stagger == 0 {
		pc.Export.Stagger = defaultStagger
	}
	if pc.LogLevel == "" {
		pc.LogLevel = defaultLogLevel
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.API.BaseURL = strings.TrimRight(strings.TrimSpace(pc.API.BaseURL), "/")
	pc.API.Origin = strings.TrimRight(strings.TrimSpace(pc.API.Origin), "/")
	pc.Session.CookieName = strings.TrimSpace(pc.Session.CookieName)
	pc.Session.CookieValue = strings.TrimSpace(pc.Session.CookieValue)
	pc.Export.Dir = resolvePath(base, pc.Export.Dir)
	pc.LogLevel = strings.ToLower(strings.TrimSpace(pc.LogLevel))
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateURL("api.base_url", pc.API.BaseURL); err != nil {
		return err
	}
	if pc.API.Origin != "" {
		if err := validateURL("api.origin", pc.API.Origin); err != nil {
			return err
		}
	}
	if pc.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if pc.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if pc.Export.Stagger < 0 {
		return fmt.Errorf("export.stagger must not be negative")
	}
	switch pc.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL", field)
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
