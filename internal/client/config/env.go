package config

import "os"

// parseEnv overlays configuration from environment variables.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("SERVER_URL"); ok && v != "" {
		config.ServerURL = v
	}
	if v, ok := os.LookupEnv("AUTH_TOKEN"); ok && v != "" {
		config.AuthToken = v
	}
	if v, ok := os.LookupEnv("DATA_DIR"); ok && v != "" {
		config.DataDir = v
	}
}
