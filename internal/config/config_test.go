package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/pomolist/internal/store"
)

// isolate points the user config dir at an empty temp dir so a real
// config.yaml never leaks into the tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	want, err := store.DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, want, cfg.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Store.ReadyAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Store.ReadyInterval)
	assert.Equal(t, 4, cfg.Sweep.RolloverHour)
	assert.Equal(t, 2, cfg.Sweep.RetentionMonths)
	assert.Equal(t, 25*time.Minute, cfg.Pomodoro.Unit())
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
db_path: /tmp/tasks.db
log:
  level: debug
  format: json
sweep:
  rollover_hour: 5
pomodoro:
  unit_minutes: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tasks.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Sweep.RolloverHour)
	assert.Equal(t, 2, cfg.Sweep.RetentionMonths)
	assert.Equal(t, 50, cfg.Pomodoro.UnitMinutes)
}

func TestLoadDefaultFileIsPickedUp(t *testing.T) {
	isolate(t)
	path, err := DefaultPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("sweep:\n  retention_months: 6\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Sweep.RetentionMonths)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: /from/file.db\n"), 0o644))

	t.Setenv("POMOLIST_DB_PATH", "/from/env.db")
	t.Setenv("POMOLIST_STORE_READY_INTERVAL", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.DBPath)
	assert.Equal(t, 250*time.Millisecond, cfg.Store.ReadyInterval)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"no attempts", func(c *Config) { c.Store.ReadyAttempts = 0 }},
		{"no interval", func(c *Config) { c.Store.ReadyInterval = 0 }},
		{"hour 24", func(c *Config) { c.Sweep.RolloverHour = 24 }},
		{"zero retention", func(c *Config) { c.Sweep.RetentionMonths = 0 }},
		{"zero unit", func(c *Config) { c.Pomodoro.UnitMinutes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}
