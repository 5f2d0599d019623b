package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "benchup.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestLoad(t *testing.T) {
	file := writeConfig(t, `
hostname: bench01
baseline: main
history:
  backend: sql
  driver: sqlite3
  dsn: /var/lib/benchup/history.db
  window: 15
regress:
  alpha: 0.01
  threshold: 0.1
graphite:
  server: graphite.internal:2003
mail:
  sender: ci@example.com
  recipients:
    - perf@example.com
smtp:
  server: smtp.example.com
  password: hunter2
`)
	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "bench01", cfg.Hostname)
	assert.Equal(t, "main", cfg.Baseline)
	assert.Equal(t, "sql", cfg.History.Backend)
	assert.Equal(t, "sqlite3", cfg.History.Driver)
	assert.Equal(t, 15, cfg.History.Window)
	assert.Equal(t, 0.01, cfg.Regress.Alpha)
	assert.Equal(t, 0.1, cfg.Regress.Threshold)
	assert.Equal(t, 4, cfg.Regress.MinSamples) // default kept
	assert.Equal(t, "graphite.internal:2003", cfg.Graphite.Server)
	assert.Equal(t, []string{"perf@example.com"}, cfg.Mail.Recipients)
	assert.Equal(t, 587, cfg.SMTP.Port) // default kept
	assert.True(t, cfg.MailConfigured())
}

func TestLoad_Defaults(t *testing.T) {
	file := writeConfig(t, "hostname: bench01\n")
	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "master", cfg.Baseline)
	assert.Equal(t, "gist", cfg.History.Backend)
	assert.Equal(t, 30, cfg.History.Window)
	assert.Equal(t, 0.05, cfg.Regress.Alpha)
	assert.False(t, cfg.MailConfigured())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("BENCHUP_GIST_TOKEN", "tok123")
	t.Setenv("BENCHUP_HOSTNAME", "envhost")

	file := writeConfig(t, "baseline: master\n")
	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "tok123", cfg.Gist.Token)
	assert.Equal(t, "envhost", cfg.Hostname)
}

func TestValidate(t *testing.T) {
	cfg := &Config{History: HistoryConfig{Backend: "gist"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gist.user")
	assert.Contains(t, err.Error(), "gist.token")

	cfg.Gist = GistConfig{User: "wolfv", Token: "tok"}
	assert.NoError(t, cfg.Validate())

	cfg = &Config{History: HistoryConfig{Backend: "pebble"}}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.path")

	cfg.History.Path = "/tmp/history"
	assert.NoError(t, cfg.Validate())

	cfg = &Config{History: HistoryConfig{Backend: "sql", Driver: "sqlite3"}}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.dsn")

	cfg.History.DSN = "/tmp/bench.db"
	assert.NoError(t, cfg.Validate())
}
