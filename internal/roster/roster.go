// Package roster models the student recipient roster.
package roster

import (
	"strings"

	"reminderbot/internal/event"
)

// Student is one roster row. Cohort fields are stored normalized the same way
// event fields are, so matching is a plain comparison.
type Student struct {
	Name      string
	Email     string
	DiscordID string

	Course string
	Batch  string
	Year   string
	Mode   string
}

// Normalized returns a copy with cohort fields case/whitespace-normalized.
func (s Student) Normalized() Student {
	s.Course = event.NormalizeCourse(s.Course)
	s.Batch = event.NormalizeBatch(s.Batch)
	s.Mode = event.NormalizeMode(s.Mode)
	s.Year = event.NormalizeYear(s.Year)
	s.Email = strings.TrimSpace(s.Email)
	s.Name = strings.TrimSpace(s.Name)
	return s
}

// Years enumerates the years the student belongs to. The year column is
// free-form text and sometimes lists several cohorts ("2025, 2026"); it is
// split on commas, semicolons and whitespace. Substring matching against the
// raw field would make "2025" match "20251", so membership is checked against
// this enumerated list.
func (s Student) Years() []string {
	f := strings.FieldsFunc(s.Year, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(f))
	for _, y := range f {
		if y = strings.TrimSpace(y); y != "" {
			out = append(out, y)
		}
	}
	return out
}

// InYear reports whether the student belongs to the given cohort year.
// An empty event year matches everyone (rows imported without a year).
func (s Student) InYear(year string) bool {
	if year == "" {
		return true
	}
	for _, y := range s.Years() {
		if y == year {
			return true
		}
	}
	return false
}
