// Package logging defines the structured-logging interface used across
// punchclock. The production implementation wraps log/slog.
package logging

import "context"

// Logger emits structured records. Arguments after msg alternate between
// keys and values:
//
//	log.Info(ctx, "connection accepted", "conn_id", id, "remote", addr)
//
// Components derive their own logger with With("module", name) and the
// listener adds conn_id per connection.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is used for store divergence and other conditions an operator
	// should look at but that do not fail a request.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
}
