// Package protocol implements the clock-in wire format shared by the
// registration server and its clients.
//
// One TCP connection carries exactly one exchange. The client writes a JSON
// object
//
//	{"username": "...", "windows_info": "...", "timestamp": "2024-05-01T08:00:00"}
//
// and the server answers with
//
//	{"status": "success"|"error", "message": "..."}
//
// before closing the connection. JSON is self-delimiting, so no length
// prefix is used: the server decodes exactly one value from a size-limited
// reader. A trailing newline after the request is allowed but not required.
//
// Error responses never carry internal detail. Failure maps every error to
// one of four stable messages by matching the sentinels in package common.
package protocol
