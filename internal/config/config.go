package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/notexe/remindd/internal/storage"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates nested keys: REMINDD_STORAGE__BACKEND sets storage.backend.
const EnvPrefix = "REMINDD_"

type Config struct {
	Storage   StorageConfig   `koanf:"storage"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Notify    NotifyConfig    `koanf:"notify"`
	Log       LogConfig       `koanf:"log"`
	UI        UIConfig        `koanf:"ui"`
}

type StorageConfig struct {
	Backend    string            `koanf:"backend"` // file, sqlite or memory
	Dir        string            `koanf:"dir"`
	SQLitePath string            `koanf:"sqlite_path"`
	Files      map[string]string `koanf:"files"` // collection -> file name inside Dir
}

type SchedulerConfig struct {
	Enabled       bool          `koanf:"enabled"`
	RenotifyAfter time.Duration `koanf:"renotify_after"`
}

type NotifyConfig struct {
	Console  bool           `koanf:"console"`
	Telegram TelegramConfig `koanf:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
}

type LogConfig struct {
	Prefix string `koanf:"prefix"`
	File   string `koanf:"file"` // empty logs to stderr
}

type UIConfig struct {
	ColoredOutput bool `koanf:"colored_output"`
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = expandPath(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Storage.Dir = expandPath(cfg.Storage.Dir)
	cfg.Storage.SQLitePath = expandPath(cfg.Storage.SQLitePath)
	cfg.Log.File = expandPath(cfg.Log.File)

	return &cfg, nil
}

// envKey maps REMINDD_NOTIFY__TELEGRAM__BOT_TOKEN to notify.telegram.bot_token.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case storage.BackendFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the file backend")
		}
	case storage.BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	case storage.BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend: %s (supported: %s, %s, %s)",
			c.Storage.Backend, storage.BackendFile, storage.BackendSQLite, storage.BackendMemory)
	}

	if c.Scheduler.RenotifyAfter < 0 {
		return fmt.Errorf("scheduler.renotify_after must not be negative")
	}

	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("Telegram bot token is required (set %sNOTIFY__TELEGRAM__BOT_TOKEN or add to config file)", EnvPrefix)
		}
		if c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("Telegram chat id is required")
		}
	}

	return nil
}

// StorageOptions converts the storage section for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:    c.Storage.Backend,
		Dir:        c.Storage.Dir,
		SQLitePath: c.Storage.SQLitePath,
		FileNames:  c.Storage.Files,
	}
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
