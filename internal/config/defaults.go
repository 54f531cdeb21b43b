package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"storage": map[string]interface{}{
			"backend":     "file",
			"dir":         "~/.remindd",
			"sqlite_path": "~/.remindd/remindd.db",
			"files": map[string]interface{}{
				"reminders":      "reminders.json",
				"backlog":        "backlog.json",
				"completed":      "completed.json",
				"config_dynamic": "config_dynamic.json",
			},
		},
		"scheduler": map[string]interface{}{
			"enabled":        true,
			"renotify_after": "15m", // 0 re-sends on every check
		},
		"notify": map[string]interface{}{
			"console": true,
			"telegram": map[string]interface{}{
				"enabled":   false,
				"bot_token": "",
				"chat_id":   "",
			},
		},
		"log": map[string]interface{}{
			"prefix": "",
			"file":   "",
		},
		"ui": map[string]interface{}{
			"colored_output": true,
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "~/.remindd/config.yaml"
}
