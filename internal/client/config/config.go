// Package config handles configuration for the companion client,
// including defaults, JSON overlay, environment variables, and
// command-line flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/notecompanion/pipeline/internal/timex"
)

// Config holds runtime settings for the companion client.
//
// Fields:
//   - ServerURL: base URL of the processing backend.
//   - AuthToken: bearer token issued by the auth provider.
//   - DataDir: root directory for the local database and content files.
//   - DrainInterval: pacing between background queue drains.
//   - PollInterval: gap between status requests while waiting on a record.
type Config struct {
	ServerURL     string
	AuthToken     string
	DataDir       string
	DrainInterval timex.Duration
	PollInterval  timex.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.AuthToken = ""
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c.DataDir = filepath.Join(home, ".notecompanion")
	c.DrainInterval = timex.Duration{Duration: 5 * time.Second}
	c.PollInterval = timex.Duration{Duration: 2 * time.Second}
}

// DatabasePath returns the local sqlite database location under DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "notecompanion.db")
}

// ItemsDir returns the directory holding per-item content files.
func (c *Config) ItemsDir() string {
	return filepath.Join(c.DataDir, "items")
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, environment variables, and finally
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
