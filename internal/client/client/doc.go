// Package client sends clock-in requests to the punchclock server.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface).
//  2. A TCP implementation (see TCPClient) speaking the one-request,
//     one-response JSON protocol from internal/protocol.
//  3. BuildEvent, which fills in the login name, a machine description and
//     the local time the way the workstation kiosk does.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable; a reply that cannot be decoded
// wraps ErrBadResponse. A well-formed error reply from the server is not a
// Go error: inspect Response.OK.
package client
