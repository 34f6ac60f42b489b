package config

import (
	"flag"
	"os"

	"github.com/notecompanion/pipeline/internal/flagx"
)

// parseFlags populates selected client Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   server base URL
//	-t string   bearer auth token
//	-d string   data directory
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerURL, "a", config.ServerURL, "server base URL")
	fs.StringVar(&config.AuthToken, "t", config.AuthToken, "bearer auth token")
	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
