package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/common"
	"github.com/dmitrijs2005/punchclock/internal/models"
)

// TimestampLayout is the form the kiosk sends: Python's isoformat() for a
// naive datetime with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// ErrEmptyRequest is returned when the peer closed the connection without
// sending anything but whitespace. The server drops such connections
// without a reply.
var ErrEmptyRequest = errors.New("empty request")

// Request is the wire form of a clock-in.
type Request struct {
	Username    string `json:"username"`
	WindowsInfo string `json:"windows_info"`
	Timestamp   string `json:"timestamp"`
}

// NewRequest builds the wire form of e.
func NewRequest(e models.ClockEvent) Request {
	return Request{
		Username:    e.Username,
		WindowsInfo: e.SourceInfo,
		Timestamp:   e.Timestamp.Format(TimestampLayout),
	}
}

// wireRequest distinguishes absent keys from empty strings.
type wireRequest struct {
	Username    *string `json:"username"`
	WindowsInfo *string `json:"windows_info"`
	Timestamp   *string `json:"timestamp"`
}

// DecodeRequest reads one JSON value from r and converts it into a
// ClockEvent. Any syntax, type or content problem is reported as
// common.ErrDecode; an empty stream yields ErrEmptyRequest.
func DecodeRequest(r io.Reader) (models.ClockEvent, error) {
	var w wireRequest

	if err := json.NewDecoder(r).Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return models.ClockEvent{}, ErrEmptyRequest
		}
		return models.ClockEvent{}, fmt.Errorf("%w: %v", common.ErrDecode, err)
	}

	switch {
	case w.Username == nil:
		return models.ClockEvent{}, fmt.Errorf("%w: missing username", common.ErrDecode)
	case w.WindowsInfo == nil:
		return models.ClockEvent{}, fmt.Errorf("%w: missing windows_info", common.ErrDecode)
	case w.Timestamp == nil:
		return models.ClockEvent{}, fmt.Errorf("%w: missing timestamp", common.ErrDecode)
	}

	// Stored verbatim; only an all-blank name is refused.
	username := *w.Username
	if strings.TrimSpace(username) == "" {
		return models.ClockEvent{}, fmt.Errorf("%w: blank username", common.ErrDecode)
	}

	ts, err := ParseTimestamp(*w.Timestamp)
	if err != nil {
		return models.ClockEvent{}, fmt.Errorf("%w: %v", common.ErrDecode, err)
	}

	return models.ClockEvent{
		Username:   username,
		Timestamp:  ts,
		SourceInfo: *w.WindowsInfo,
	}, nil
}

// EncodeRequest writes req to w as a single JSON object.
func EncodeRequest(w io.Writer, req Request) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Fractional seconds are accepted after the seconds field by time.Parse
// even though the layouts do not spell them out.
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp accepts the ISO-8601 local date-time forms produced by
// Python's datetime.isoformat. An explicit offset is preserved, so the
// date and time written in the payload are the ones that get recorded.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
