package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Scraping ScrapingConfig `toml:"scraping"`
	Media    MediaConfig    `toml:"media"`
	Output   OutputConfig   `toml:"output"`
	Watch    WatchConfig    `toml:"watch"`
}

type ScrapingConfig struct {
	Headless bool   `toml:"headless"`
	Proxy    string `toml:"proxy"`

	// Traversal bounds. StallLimit passes without a new tweet end the run;
	// ScrollSteps bounds the incremental scroll probe between passes.
	StallLimit   int `toml:"stall_limit"`
	ScrollSteps  int `toml:"scroll_steps"`
	ExpandRounds int `toml:"expand_rounds"`

	ScrollPauseMs int `toml:"scroll_pause_ms"`
	NavTimeoutSec int `toml:"nav_timeout_sec"`

	// IncludeRoot controls whether the first tweet of the thread (the root)
	// is part of the output or skipped.
	IncludeRoot bool `toml:"include_root"`
}

type MediaConfig struct {
	ManifestTimeoutSec int `toml:"manifest_timeout_sec"`
	ProbeTimeoutSec    int `toml:"probe_timeout_sec"`
}

type OutputConfig struct {
	JSON     string `toml:"json"`
	CSV      string `toml:"csv"`
	Markdown string `toml:"markdown"`
	RSS      string `toml:"rss"`
	Database string `toml:"database"`
}

type WatchConfig struct {
	Enabled       bool   `toml:"enabled"`
	IntervalHours int    `toml:"interval_hours"`
	Timezone      string `toml:"timezone"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Scraping: ScrapingConfig{
			Headless:      true,
			StallLimit:    3,
			ScrollSteps:   15,
			ExpandRounds:  5,
			ScrollPauseMs: 600,
			NavTimeoutSec: 60,
			IncludeRoot:   true,
		},
		Media: MediaConfig{
			ManifestTimeoutSec: 15,
			ProbeTimeoutSec:    10,
		},
		Output: OutputConfig{
			JSON: "thread.json",
		},
		Watch: WatchConfig{
			IntervalHours: 6,
			Timezone:      "Local",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "unspool"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from an explicit path
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
