package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/flagx"
)

var serverFlags = flagx.Set{
	Value: []string{"-a", "-x", "-k", "-d", "-w", "-r", "-t", "-l", "-m", "-v", "-b", "-g", "-e", "-u", "-p", "-f", "-i"},
	Bool:  []string{"-rebuild", "--rebuild"},
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   clock-in listen address (e.g., ":5000")
//	-x string   workbook path
//	-k string   database driver: sqlite, postgres or mysql
//	-d string   database DSN (a file path for sqlite)
//	-w int      worker count
//	-r int      read timeout, seconds
//	-t int      write timeout, seconds
//	-l int      max request size, bytes
//	-m string   gRPC health address ("" disables)
//	-v string   log level
//	-b string   S3 bucket ("" disables archiving)
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-u string   S3 root user
//	-p string   S3 root password
//	-f string   S3 key prefix
//	-i int      archive interval, minutes
//	-rebuild    rewrite the workbook from the database and exit
//
// Arguments are first filtered down to the flags above with flagx, so
// the config file flag does not trip the parser.
func parseFlags(config *Config, args []string) error {
	args = serverFlags.Filter(args)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to listen on")
	fs.StringVar(&config.SheetPath, "x", config.SheetPath, "workbook path")
	fs.StringVar(&config.DatabaseDriver, "k", config.DatabaseDriver, "database driver (sqlite, postgres, mysql)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.Workers, "w", config.Workers, "number of connection workers")

	readTimeout := fs.Int("r", int(config.ReadTimeout.Seconds()), "read timeout (in seconds)")
	writeTimeout := fs.Int("t", int(config.WriteTimeout.Seconds()), "write timeout (in seconds)")

	fs.Int64Var(&config.MaxMessageSize, "l", config.MaxMessageSize, "max request size (in bytes)")
	fs.StringVar(&config.HealthAddr, "m", config.HealthAddr, "gRPC health address")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Prefix, "f", config.S3Prefix, "S3 key prefix")

	archiveInterval := fs.Int("i", int(config.ArchiveInterval.Minutes()), "archive interval (in minutes)")

	fs.BoolVar(&config.Rebuild, "rebuild", config.Rebuild, "rebuild the workbook from the database and exit")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.ReadTimeout = time.Duration(*readTimeout) * time.Second
	config.WriteTimeout = time.Duration(*writeTimeout) * time.Second
	config.ArchiveInterval = time.Duration(*archiveInterval) * time.Minute

	return nil
}
