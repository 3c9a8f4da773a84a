// Package cli runs a single clock-in from the command line.
//
// It builds the event for the current workstation, sends it to the server
// and reports the outcome. On a terminal the outcome is a short sentence;
// otherwise the server's JSON reply is echoed unchanged so scripts can
// parse it.
package cli
