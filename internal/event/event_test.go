package event

import (
	"testing"
	"time"
)

func TestParseClassTimeVariants(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("IST", 5*3600+1800)
	tests := []struct {
		name  string
		date  string
		clock string
		want  time.Time
	}{
		{name: "plain", date: "2026-09-01", clock: "18:00", want: time.Date(2026, 9, 1, 18, 0, 0, 0, loc)},
		{name: "seconds", date: "2026-09-01", clock: "18:00:30", want: time.Date(2026, 9, 1, 18, 0, 30, 0, loc)},
		{name: "12 hour", date: "2026-09-01", clock: "6:00 PM", want: time.Date(2026, 9, 1, 18, 0, 0, 0, loc)},
		{name: "padded", date: " 2026-09-01 ", clock: " 18:00 ", want: time.Date(2026, 9, 1, 18, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClassTime(tt.date, tt.clock, loc)
			if err != nil {
				t.Fatalf("ParseClassTime(%q, %q) error: %v", tt.date, tt.clock, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseClassTimeInvalid(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	for _, tt := range []struct{ date, clock string }{
		{"", "18:00"},
		{"2026-09-01", ""},
		{"tomorrow", "18:00"},
		{"2026-09-01", "evening"},
	} {
		if _, err := ParseClassTime(tt.date, tt.clock, loc); err == nil {
			t.Fatalf("ParseClassTime(%q, %q): expected error", tt.date, tt.clock)
		}
	}
}

func TestParseDueTime(t *testing.T) {
	t.Parallel()
	loc := time.UTC
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "full", raw: "2026-09-05 20:00", want: time.Date(2026, 9, 5, 20, 0, 0, 0, loc)},
		{name: "dot separator", raw: "2026-09-05 23.59", want: time.Date(2026, 9, 5, 23, 59, 0, 0, loc)},
		{name: "date only defaults to end of day", raw: "2026-09-05", want: time.Date(2026, 9, 5, 23, 59, 0, 0, loc)},
		{name: "t separator", raw: "2026-09-05T20:00", want: time.Date(2026, 9, 5, 20, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDueTime(tt.raw, loc)
			if err != nil {
				t.Fatalf("ParseDueTime(%q) error: %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseDueTime("   ", loc); err == nil {
		t.Fatal("expected error for empty due date")
	}
	if _, err := ParseDueTime("next friday", loc); err == nil {
		t.Fatal("expected error for free text due date")
	}
}

func TestNaturalIDDistinguishesOccurrences(t *testing.T) {
	t.Parallel()
	day1 := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 9, 8, 18, 0, 0, 0, time.UTC)

	c1 := Event{Kind: KindClass, Title: "Intro to SQL", At: day1}
	c2 := Event{Kind: KindClass, Title: "Intro to SQL", At: day2}
	if c1.NaturalID() == c2.NaturalID() {
		t.Fatalf("recurring sessions on different days must not share an id: %q", c1.NaturalID())
	}

	// Two deadlines for the same subject on the same day differ by time.
	a1 := Event{Kind: KindAssignment, Title: "Project 1", At: time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)}
	a2 := Event{Kind: KindAssignment, Title: "Project 1", At: time.Date(2026, 9, 5, 23, 59, 0, 0, time.UTC)}
	if a1.NaturalID() == a2.NaturalID() {
		t.Fatalf("same-day deadlines must not share an id: %q", a1.NaturalID())
	}
}

func TestMinutesUntil(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC)
	ev := Event{At: now.Add(30 * time.Minute)}
	if got := ev.MinutesUntil(now); got != 30 {
		t.Fatalf("MinutesUntil = %v, want 30", got)
	}
	past := Event{At: now.Add(-10 * time.Minute)}
	if got := past.MinutesUntil(now); got != -10 {
		t.Fatalf("MinutesUntil = %v, want -10", got)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	if got := NormalizeCourse("  Data Science "); got != "data science" {
		t.Fatalf("NormalizeCourse = %q", got)
	}
	if got := NormalizeBatch(" b7 "); got != "B7" {
		t.Fatalf("NormalizeBatch = %q", got)
	}
	if got := NormalizeMode(""); got != "offline" {
		t.Fatalf("NormalizeMode(empty) = %q, want offline", got)
	}
	if got := NormalizeMode(" Online "); got != "online" {
		t.Fatalf("NormalizeMode = %q", got)
	}
	if got := NormalizeYear(" 2025, 2026 "); got != "2025, 2026" {
		t.Fatalf("NormalizeYear = %q", got)
	}
}
