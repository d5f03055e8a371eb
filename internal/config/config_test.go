package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"STRATA_API_URL", "STRATA_ORIGIN", "STRATA_SESSION", "STRATA_EXPORT_DIR", "STRATA_LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestInitWritesCommentedDefaults(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	require.NoError(t, InitStrataDir(projectDir))
	assert.DirExists(t, filepath.Join(projectDir, ".strata", "logs"))
	assert.DirExists(t, filepath.Join(projectDir, ".strata", "exports"))

	data, err := os.ReadFile(filepath.Join(projectDir, ".strata", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# strata console configuration")

	cfg, err := NewConfig(projectDir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Project.Version)
	assert.Equal(t, "http://localhost:5000", cfg.BaseURL())
	assert.Equal(t, cfg.BaseURL(), cfg.Origin())
	assert.Equal(t, 30*time.Second, cfg.Project.API.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Project.Export.Stagger)
	assert.Equal(t, filepath.Join(projectDir, ".strata", "exports"), cfg.ExportDir())
	assert.Equal(t, "info", cfg.LogLevel())
}

func TestInitKeepsExistingConfig(t *testing.T) {
	projectDir := t.TempDir()
	path := filepath.Join(projectDir, ".strata", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))
	require.NoError(t, InitStrataDir(projectDir))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
}

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	cfg, err := NewConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, defaultCookieName, cfg.Project.Session.CookieName)
	assert.True(t, filepath.IsAbs(cfg.ExportDir()))
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
version: 1
api:
  base_url: https://api.example.com/
  origin: https://plan.example.com
  timeout: 5s
session:
  cookie_name: sid
  cookie_value: abc
export:
  dir: out/csv
  stagger: 2s
log_level: DEBUG
`)
	cfg, err := NewConfig(projectDir)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL())
	assert.Equal(t, "https://plan.example.com", cfg.Origin())
	assert.Equal(t, 5*time.Second, cfg.Project.API.Timeout)
	assert.Equal(t, "sid", cfg.Project.Session.CookieName)
	assert.Equal(t, "abc", cfg.Project.Session.CookieValue)
	assert.Equal(t, filepath.Join(projectDir, "out", "csv"), cfg.ExportDir())
	assert.Equal(t, 2*time.Second, cfg.Project.Export.Stagger)
	assert.Equal(t, "debug", cfg.LogLevel())
}

func TestLoadProjectConfigValidation(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"relative url": "version: 1\napi:\n  base_url: localhost:5000\n",
		"bad level":    "version: 1\nlog_level: loud\n",
		"bad version":  "version: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			projectDir := t.TempDir()
			writeConfig(t, projectDir, body)
			_, err := NewConfig(projectDir)
			assert.Error(t, err)
		})
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	writeConfig(t, projectDir, "version: 1\napi:\n  base_url: http://file.example.com\n")
	t.Setenv("STRATA_API_URL", "https://env.example.com")
	t.Setenv("STRATA_SESSION", "s3cret")
	t.Setenv("STRATA_LOG_LEVEL", "warn")

	cfg, err := NewConfig(projectDir)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL())
	assert.Equal(t, "s3cret", cfg.Project.Session.CookieValue)
	assert.Equal(t, "warn", cfg.LogLevel())
}

func TestDotEnvFilesAreLoadedWhenPresent(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".env"), []byte("STRATA_ORIGIN=https://dotenv.example.com\n"), 0o644))

	n, err := LoadEnv([]string{filepath.Join(projectDir, ".env"), filepath.Join(projectDir, ".env.local")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cfg, err := NewConfig(projectDir)
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.com", cfg.Origin())
}

func writeConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	dir := filepath.Join(projectDir, ".strata")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(strings.TrimSpace(body)+"\n"), 0o644))
}
