// Package common defines shared constants and sentinel errors used across
// the punchclock server and client. Callers should use errors.Is to match
// these values; lower layers wrap them with fmt.Errorf("...: %w", err).
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrDecode marks a malformed or incomplete request payload.
	ErrDecode = errors.New("malformed request")

	// ErrDuplicate marks a clock-in for a (username, date) pair that is
	// already recorded.
	ErrDuplicate = errors.New("already registered for this date")

	// ErrPersistence marks a store that could not be opened, read or written.
	ErrPersistence = errors.New("persistence failure")

	// ErrInternal covers everything else, including recovered panics.
	ErrInternal = errors.New("internal error")
)
