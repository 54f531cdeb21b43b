package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(home, ".remindd"), cfg.Storage.Dir)
	assert.Equal(t, "completed.json", cfg.Storage.Files["completed"])
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.RenotifyAfter)
	assert.True(t, cfg.Notify.Console)
	assert.False(t, cfg.Notify.Telegram.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: sqlite
  sqlite_path: /tmp/remind.db
scheduler:
  renotify_after: 1h
notify:
  telegram:
    enabled: true
    chat_id: "100"
`), 0o644))

	t.Setenv("REMINDD_NOTIFY__TELEGRAM__BOT_TOKEN", "secret")
	t.Setenv("REMINDD_SCHEDULER__RENOTIFY_AFTER", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/remind.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.RenotifyAfter)
	assert.Equal(t, "secret", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "100", cfg.Notify.Telegram.ChatID)
	assert.NoError(t, cfg.Validate())

	opts := cfg.StorageOptions()
	assert.Equal(t, "sqlite", opts.Backend)
	assert.Equal(t, "/tmp/remind.db", opts.SQLitePath)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "unknown storage backend"},
		{"file without dir", func(c *Config) { c.Storage.Dir = "" }, "storage.dir is required"},
		{"sqlite without path", func(c *Config) { c.Storage.Backend = "sqlite"; c.Storage.SQLitePath = "" }, "storage.sqlite_path is required"},
		{"negative renotify", func(c *Config) { c.Scheduler.RenotifyAfter = -time.Second }, "must not be negative"},
		{"telegram without token", func(c *Config) { c.Notify.Telegram.Enabled = true; c.Notify.Telegram.ChatID = "1" }, "bot token is required"},
		{"telegram without chat", func(c *Config) { c.Notify.Telegram.Enabled = true; c.Notify.Telegram.BotToken = "t" }, "chat id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	mem := base()
	mem.Storage.Backend = "memory"
	mem.Storage.Dir = ""
	assert.NoError(t, mem.Validate())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x", "y"), expandPath("~/x/y"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.Equal(t, "", expandPath(""))
}
