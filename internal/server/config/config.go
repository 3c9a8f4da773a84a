// Package config handles configuration for the server component,
// including defaults, a JSON or YAML file overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/common"
)

// Config holds runtime settings for the punchclock server.
//
// Fields:
//   - ListenAddr: bind address for the clock-in TCP listener.
//   - SheetPath: the .xlsx workbook kept alongside the database.
//   - DatabaseDriver / DatabaseDSN: relational store (sqlite, postgres or mysql).
//   - Workers: connections handled at the same time; 1 serves them one by one.
//   - ReadTimeout / WriteTimeout: per-connection socket deadlines.
//   - MaxMessageSize: request size limit in bytes.
//   - HealthAddr: gRPC health endpoint; empty disables it.
//   - S3*: workbook archiving; an empty bucket disables it.
type Config struct {
	ListenAddr      string
	SheetPath       string
	DatabaseDriver  string
	DatabaseDSN     string
	Workers         int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageSize  int64
	HealthAddr      string
	LogLevel        string
	S3Bucket        string
	S3Region        string
	S3BaseEndpoint  string
	S3RootUser      string
	S3RootPassword  string
	S3Prefix        string
	ArchiveInterval time.Duration
	Rebuild         bool
}

// LoadDefaults populates Config with the values the kiosk deployment
// expects: port 5000 on all interfaces and both stores next to the binary.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":" + common.DefaultPort
	c.SheetPath = "registro_ponto.xlsx"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "registro_ponto.db"
	c.Workers = 4
	c.ReadTimeout = 30 * time.Second
	c.WriteTimeout = 10 * time.Second
	c.MaxMessageSize = 4096
	c.HealthAddr = ":5001"
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
	c.S3Prefix = "punchclock"
	c.ArchiveInterval = 60 * time.Minute
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional config file (-c / -config) and finally from command-line flags.
// args excludes the program name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("database driver %q is not one of sqlite, postgres, mysql", c.DatabaseDriver))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.SheetPath == "" {
		errs = append(errs, errors.New("sheet path is empty"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is empty"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("read and write timeouts must be positive"))
	}
	if c.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("max message size must be positive, got %d", c.MaxMessageSize))
	}
	if c.S3Bucket != "" && c.ArchiveInterval <= 0 {
		errs = append(errs, errors.New("archive interval must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
