package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Path returns the config file location, ~/.config/spoonemu/config.yaml.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "spoonemu", "config.yaml")
}

// Load loads configuration from Path and applies SPOONEMU_* environment
// overrides. A missing or invalid file leaves the defaults in place.
func Load() Config {
	cfg := DefaultConfig()

	if path := Path(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var fileCfg = cfg
			if yaml.Unmarshal(data, &fileCfg) == nil {
				cfg = fileCfg
			}
		}
	}

	applyEnv(&cfg)
	return cfg
}

// LoadDotEnv loads variables from a .env file without overriding ones that
// are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SPOONEMU_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SPOONEMU_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("SPOONEMU_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SPOONEMU_HISTORY_PATH"); v != "" {
		cfg.HistoryPath = v
	}
	if v := os.Getenv("SPOONEMU_HEADER_MATCH"); v != "" {
		cfg.HeaderMatch = v
	}
}
