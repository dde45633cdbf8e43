// Package event defines the scheduled-event model the reminder engine
// evaluates: classes with a start time and assignments with a due time.
//
// Events are snapshots. The poll loop reloads them from the source every
// cycle and never mutates them in place.
package event

import (
	"strings"
	"time"
)

// Kind discriminates the two event variants.
type Kind string

const (
	KindClass      Kind = "class"
	KindAssignment Kind = "assignment"
)

// Event is one scheduled occurrence: a class session or an assignment
// deadline. Course/Batch/Year/Mode are stored normalized (see Normalize*).
type Event struct {
	Kind   Kind
	Course string
	Batch  string
	Year   string
	Mode   string

	// Title is the session name for classes, the subject for assignments.
	Title string

	// At is the absolute instant the event happens (class start / due time),
	// resolved in the configured location.
	At time.Time

	// RawDate/RawTime keep the source's original text for message templates.
	RawDate string
	RawTime string
}

// NaturalID identifies this event stably across polls and re-imports.
// It deliberately excludes storage row ids, which change when schedules are
// re-imported. A recurring session name stays unique because the date is part
// of the identity; assignment identity carries the due time as well, so two
// deadlines for the same subject never collide.
func (e Event) NaturalID() string {
	switch e.Kind {
	case KindAssignment:
		return e.Title + "-" + e.At.Format("2006-01-02T15:04")
	default:
		return e.Title + "-" + e.At.Format("2006-01-02")
	}
}

// MinutesUntil returns the fractional minutes from now until the event.
// Negative means the event is in the past.
func (e Event) MinutesUntil(now time.Time) float64 {
	return e.At.Sub(now).Minutes()
}

// NormalizeCourse lowercases and trims a course name.
func NormalizeCourse(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizeBatch uppercases and trims a batch name.
func NormalizeBatch(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// NormalizeMode lowercases and trims a delivery mode; empty defaults to
// "offline" (source rows predating the mode column have none).
func NormalizeMode(s string) string {
	m := strings.ToLower(strings.TrimSpace(s))
	if m == "" {
		return "offline"
	}
	return m
}

// NormalizeYear trims the year field. It stays a string: source data carries
// multi-value years like "2025, 2026".
func NormalizeYear(s string) string { return strings.TrimSpace(s) }
