package config

import (
	"encoding/json"
	"os"

	"github.com/notecompanion/pipeline/internal/flagx"
	"github.com/notecompanion/pipeline/internal/timex"
)

// JsonConfig is the JSON DTO for the client config file. Durations accept
// either "5s"-style strings or integer nanoseconds.
type JsonConfig struct {
	ServerURL     string         `json:"server_url"`
	AuthToken     string         `json:"auth_token"`
	DataDir       string         `json:"data_dir"`
	DrainInterval timex.Duration `json:"drain_interval"`
	PollInterval  timex.Duration `json:"poll_interval"`
}

// parseJson loads configuration values from a JSON file (path from the
// -c/-config flags) into the provided Config. Panics on unreadable or
// invalid files.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.ServerURL != "" {
		config.ServerURL = c.ServerURL
	}
	if c.AuthToken != "" {
		config.AuthToken = c.AuthToken
	}
	if c.DataDir != "" {
		config.DataDir = c.DataDir
	}
	if c.DrainInterval.Duration > 0 {
		config.DrainInterval = c.DrainInterval
	}
	if c.PollInterval.Duration > 0 {
		config.PollInterval = c.PollInterval
	}
}
