package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	// Driver is "sqlite" or "redis".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the sqlite database file.
	Path string `mapstructure:"path" yaml:"path"`

	// RedisURL is a redis:// connection URL.
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`

	// TimeoutMs bounds every single store call.
	TimeoutMs int `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// Timeout returns the per-call store timeout.
func (c StoreConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SelectionConfig holds the detail panel animation timings.
type SelectionConfig struct {
	EnterMs    int `mapstructure:"enter_ms" yaml:"enter_ms"`
	ExitMs     int `mapstructure:"exit_ms" yaml:"exit_ms"`
	Breakpoint int `mapstructure:"breakpoint" yaml:"breakpoint"`

	// CellWidth converts terminal columns into logical pixels for the
	// narrow viewport breakpoint.
	CellWidth int `mapstructure:"cell_width" yaml:"cell_width"`
}

// ContactsConfig holds contact list preferences.
type ContactsConfig struct {
	Locale string `mapstructure:"locale" yaml:"locale"`
}

// BoardConfig holds board preferences.
type BoardConfig struct {
	NotifySuccess bool `mapstructure:"notify_success" yaml:"notify_success"`
}

// SyncConfig controls the background refresher.
type SyncConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Selection SelectionConfig `mapstructure:"selection" yaml:"selection"`
	Contacts  ContactsConfig  `mapstructure:"contacts" yaml:"contacts"`
	Board     BoardConfig     `mapstructure:"board" yaml:"board"`
	Sync      SyncConfig      `mapstructure:"sync" yaml:"sync"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/kanban, or the working directory when the
// home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "kanban")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/kanban/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *AppConfig {
	dir := configDir()
	return &AppConfig{
		Store: StoreConfig{
			Driver:    "sqlite",
			Path:      filepath.Join(dir, "board.db"),
			RedisURL:  "redis://localhost:6379/0",
			TimeoutMs: 10000,
		},
		Selection: SelectionConfig{
			EnterMs:    200,
			ExitMs:     200,
			Breakpoint: 850,
			CellWidth:  8,
		},
		Contacts: ContactsConfig{Locale: "en"},
		Sync:     SyncConfig{IntervalSec: 120},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "kanban.log"),
		},
	}
}

func setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.redis_url", cfg.Store.RedisURL)
	v.SetDefault("store.timeout_ms", cfg.Store.TimeoutMs)
	v.SetDefault("selection.enter_ms", cfg.Selection.EnterMs)
	v.SetDefault("selection.exit_ms", cfg.Selection.ExitMs)
	v.SetDefault("selection.breakpoint", cfg.Selection.Breakpoint)
	v.SetDefault("selection.cell_width", cfg.Selection.CellWidth)
	v.SetDefault("contacts.locale", cfg.Contacts.Locale)
	v.SetDefault("board.notify_success", cfg.Board.NotifySuccess)
	v.SetDefault("sync.interval_sec", cfg.Sync.IntervalSec)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// Environment variables prefixed with KANBAN_ override file values.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("kanban")
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		_, isPath := err.(*os.PathError)
		_, isMissing := err.(viper.ConfigFileNotFoundError)
		if !isPath && !isMissing {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Selection.Breakpoint <= 0 {
		return fmt.Errorf("selection.breakpoint must be positive")
	}
	if c.Selection.EnterMs < 0 || c.Selection.ExitMs < 0 {
		return fmt.Errorf("selection durations must not be negative")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("selection", cfg.Selection)
	v.Set("contacts", cfg.Contacts)
	v.Set("board", cfg.Board)
	v.Set("sync", cfg.Sync)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
