package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Timeout       time.Duration `yaml:"timeout"`
	ScriptTimeout time.Duration `yaml:"script_timeout"`
	HeaderMatch   string        `yaml:"header_match"`
	LogLevel      string        `yaml:"log_level"`
	History       bool          `yaml:"history"`
	HistoryPath   string        `yaml:"history_path"`
	Proxy         string        `yaml:"proxy"`
	NoProxy       string        `yaml:"no_proxy"`
	Highlight     bool          `yaml:"highlight"`
	Theme         string        `yaml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		ScriptTimeout: 5 * time.Second,
		HeaderMatch:   "pattern",
		LogLevel:      "warn",
		History:       true,
		HistoryPath:   defaultHistoryPath(),
		Highlight:     true,
		Theme:         "monokai",
	}
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "spoonemu-history.db"
	}
	return filepath.Join(home, ".local", "share", "spoonemu", "history.db")
}
