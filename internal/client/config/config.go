package config

import (
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/common"
)

// Config holds runtime settings for the sender.
//
// Fields:
//   - ServerAddr: host:port of the clock-in server.
//   - Timeout: bound on dialing plus the request/response exchange.
//   - Username / SourceInfo: overrides for the detected values.
type Config struct {
	ServerAddr string
	Timeout    time.Duration
	Username   string
	SourceInfo string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = net.JoinHostPort("127.0.0.1", common.DefaultPort)
	c.Timeout = 10 * time.Second
}

// Load constructs a Config, applies defaults, then overlays values from a
// JSON file (if given) and command-line flags. Later sources take
// precedence over earlier ones. args excludes the program name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.ServerAddr == "" {
		return nil, errors.New("server address is empty")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	return cfg, nil
}
