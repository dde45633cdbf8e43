package event

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp parsing mirrors what the schedule spreadsheets actually contain.
// Imports are lenient, so dates and times arrive as free-ish text:
//   - class rows split date ("2025-12-02") and time ("18:00", "18:00:00")
//   - assignment due dates may be date-only (due end of day) and sometimes
//     use "." instead of ":" in the time part ("2025-12-05 23.59")
//
// An unparsable timestamp drops the event for the cycle; it is data noise,
// not a fault.

var classLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 3:04 PM",
}

var dueLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseClassTime combines a class row's date and time fields into one instant
// in loc.
func ParseClassTime(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("class time: empty date or time (%q, %q)", date, clock)
	}
	raw := date + " " + clock
	for _, layout := range classLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("class time: cannot parse %q", raw)
}

// ParseDueTime parses an assignment due date in loc. A bare date means due at
// 23:59 that day.
func ParseDueTime(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ".", ":"))
	if s == "" {
		return time.Time{}, fmt.Errorf("due time: empty value")
	}
	// Date-only ("2025-12-05") defaults to end of day.
	if len(s) <= 10 {
		s += " 23:59"
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("due time: cannot parse %q", raw)
}
