// Package config loads runtime configuration for the punchclock sender.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file, comments allowed (see parseJSON), selected with -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the clock-in server
//	-t int      dial and exchange timeout (seconds)
//	-u string   username to send instead of the OS login
//	-s string   source description to send instead of the detected one
//
// # JSON schema
//
//	{
//	  "server_addr": "192.168.51.8:5000",
//	  "timeout": "10s"
//	}
package config
