package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Note: args are filtered to the flags handled here with flagx.FilterArgs,
// so the config file flag does not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-u", "-s"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "address and port of the clock-in server")
	timeout := fs.Int("t", int(cfg.Timeout.Seconds()), "timeout (in seconds)")
	fs.StringVar(&cfg.Username, "u", cfg.Username, "username override")
	fs.StringVar(&cfg.SourceInfo, "s", cfg.SourceInfo, "source info override")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
	return nil
}
