// Package config loads the watcher configuration from a YAML file with
// environment fallbacks. Command-line flags are merged on top by the
// caller; the precedence is flags > file > environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the file and flags leave a field unset.
const (
	DefaultDaysBack = 30
)

// Config is the full program configuration.
type Config struct {
	Token           string   `yaml:"token"`
	Org             string   `yaml:"org"`
	Usernames       []string `yaml:"names"`
	Me              string   `yaml:"me"`
	Team            string   `yaml:"team"`
	CachePath       string   `yaml:"cache_dir"`
	DaysBack        int      `yaml:"days-back"`
	UpdateOnStartup *bool    `yaml:"update_on_startup"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".prwatch", "config.yml")
}

// DefaultCachePath returns the default cache file location.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".prwatch", "cache.json")
}

// Load reads the YAML file at path. A missing file yields a zero config
// and no error, so a pure-flags invocation works without one. The GitHub
// token falls back to the GITHUB_TOKEN environment variable, which itself
// may come from a .env file in the working directory.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Flags may carry everything needed.
		default:
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if cfg.Token == "" {
		_ = godotenv.Load()
		cfg.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.DaysBack == 0 {
		cfg.DaysBack = DefaultDaysBack
	}
	return cfg, nil
}

// Validate checks that the config can drive a fetch cycle.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("config: a GitHub token is required (config file, --token, or GITHUB_TOKEN)")
	}
	if len(c.Usernames) == 0 {
		return errors.New("config: at least one tracked username is required")
	}
	if c.DaysBack <= 0 {
		return errors.New("config: days-back must be positive")
	}
	return nil
}

// FetchOnStartup reports whether the first cycle should run immediately.
// Unset defaults to true.
func (c *Config) FetchOnStartup() bool {
	return c.UpdateOnStartup == nil || *c.UpdateOnStartup
}
