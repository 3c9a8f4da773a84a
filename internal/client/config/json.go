package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/punchclock/internal/flagx"
	"github.com/dmitrijs2005/punchclock/internal/timex"
	"github.com/tidwall/jsonc"
)

// JSONConfig is the on-disk form of Config.
type JSONConfig struct {
	ServerAddr string         `json:"server_addr"`
	Timeout    timex.Duration `json:"timeout"`
	Username   string         `json:"username"`
	SourceInfo string         `json:"source_info"`
}

// parseJSON overlays cfg with the non-empty values of the file named by -c
// or -config.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ServerAddr != "" {
		cfg.ServerAddr = jc.ServerAddr
	}
	if jc.Timeout.Duration != 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	if jc.Username != "" {
		cfg.Username = jc.Username
	}
	if jc.SourceInfo != "" {
		cfg.SourceInfo = jc.SourceInfo
	}
	return nil
}
