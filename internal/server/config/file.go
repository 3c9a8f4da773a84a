package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/punchclock/internal/flagx"
	"github.com/dmitrijs2005/punchclock/internal/timex"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config. Intervals use timex.Duration,
// so both "30s" and integer nanoseconds are accepted.
type FileConfig struct {
	ListenAddr      string         `json:"listen_addr" yaml:"listen_addr"`
	SheetPath       string         `json:"sheet_path" yaml:"sheet_path"`
	DatabaseDriver  string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN     string         `json:"database_dsn" yaml:"database_dsn"`
	Workers         int            `json:"workers" yaml:"workers"`
	ReadTimeout     timex.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    timex.Duration `json:"write_timeout" yaml:"write_timeout"`
	MaxMessageSize  int64          `json:"max_message_size" yaml:"max_message_size"`
	HealthAddr      *string        `json:"health_addr" yaml:"health_addr"`
	LogLevel        string         `json:"log_level" yaml:"log_level"`
	S3Bucket        string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region        string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3RootUser      string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Prefix        string         `json:"s3_prefix" yaml:"s3_prefix"`
	ArchiveInterval timex.Duration `json:"archive_interval" yaml:"archive_interval"`
}

// parseFile overlays values from the file named by -c / -config. YAML is
// chosen by a .yaml or .yml extension; anything else is read as JSON with
// comments. Only non-zero values override what is already set.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)

	// nothing to load
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, c)
	default:
		err = json.Unmarshal(jsonc.ToJSON(b), c)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.SheetPath, c.SheetPath)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.Workers != 0 {
		config.Workers = c.Workers
	}
	if c.ReadTimeout.Duration != 0 {
		config.ReadTimeout = c.ReadTimeout.Duration
	}
	if c.WriteTimeout.Duration != 0 {
		config.WriteTimeout = c.WriteTimeout.Duration
	}
	if c.MaxMessageSize != 0 {
		config.MaxMessageSize = c.MaxMessageSize
	}
	// health_addr may be set to "" on purpose to disable the endpoint.
	if c.HealthAddr != nil {
		config.HealthAddr = *c.HealthAddr
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Prefix, c.S3Prefix)
	if c.ArchiveInterval.Duration != 0 {
		config.ArchiveInterval = c.ArchiveInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
