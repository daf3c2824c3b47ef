package domain

import (
	"fmt"
	"time"
)

// isoLayout is the millisecond UTC layout the catalog stores dates in.
const isoLayout = "2006-01-02T15:04:05.000Z"

// ParseISODate parses an ISO-8601 date as sent by the catalog.
// Fractional seconds and numeric offsets are accepted.
func ParseISODate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	// elastic style offsets without a colon, e.g. 2022-02-14T00:00:00+0100
	if t, err := time.Parse("2006-01-02T15:04:05Z0700", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parse iso date %q", s)
}

// FormatISODate formats t the way the catalog stores dates.
func FormatISODate(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateWindow is a time range. Contains treats it as half-open [Start, End).
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayWindow returns the window from midnight of ref up to the end of the day
// plusDays later, i.e. [startOfDay(ref), startOfDay(ref)+(plusDays+1) days).
// A negative plusDays is treated as 0.
func DayWindow(ref time.Time, plusDays int) DateWindow {
	if plusDays < 0 {
		plusDays = 0
	}
	start := StartOfDay(ref)
	return DateWindow{Start: start, End: start.AddDate(0, 0, plusDays+1)}
}

// Contains reports whether t lies in [Start, End).
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
