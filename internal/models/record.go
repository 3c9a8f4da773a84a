// Package models defines the clock-in event decoded from the wire and the
// attendance record persisted in both stores.
package models

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// ClockEvent is one clock-in request. Timestamp carries the wall clock the
// workstation reported; no timezone conversion is ever applied to it.
type ClockEvent struct {
	Username   string
	Timestamp  time.Time
	SourceInfo string
}

// Date returns the calendar day of the event as YYYY-MM-DD.
func (e ClockEvent) Date() string {
	return e.Timestamp.Format(DateLayout)
}

// AttendanceRecord is the persisted form of a ClockEvent. ID is assigned by
// the relational store; rows read from the spreadsheet have ID 0.
type AttendanceRecord struct {
	ID         int64
	Username   string
	Date       string
	Time       string
	SourceInfo string
}

// NewAttendanceRecord derives the persisted record from an event.
func NewAttendanceRecord(e ClockEvent) AttendanceRecord {
	return AttendanceRecord{
		Username:   e.Username,
		Date:       e.Timestamp.Format(DateLayout),
		Time:       e.Timestamp.Format(TimeLayout),
		SourceInfo: e.SourceInfo,
	}
}

// Key identifies the once-per-day slot a record occupies.
type Key struct {
	Username string
	Date     string
}

func (r AttendanceRecord) Key() Key {
	return Key{Username: r.Username, Date: r.Date}
}
