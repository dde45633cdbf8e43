package engine

import (
	"testing"
	"time"

	"reminderbot/internal/config"
)

func classWindows() []Window {
	return WindowsFromConfig(config.DefaultClassWindows)
}

func TestActiveWindowsClassDefaults(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		minutesOut float64
		want       []string
	}{
		{name: "30 minutes out", minutesOut: 30, want: []string{"30"}},
		{name: "just over an hour", minutesOut: 62, want: []string{"60"}},
		{name: "start time", minutesOut: 0, want: []string{"2"}},
		{name: "gap between windows", minutesOut: 12, want: nil},
		{name: "too far out", minutesOut: 120, want: nil},
		{name: "already started", minutesOut: -1, want: nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			target := now.Add(time.Duration(tt.minutesOut * float64(time.Minute)))
			got := ActiveWindows(now, target, classWindows())
			if len(got) != len(tt.want) {
				t.Fatalf("ActiveWindows = %v, want labels %v", got, tt.want)
			}
			for i, w := range got {
				if w.Label != tt.want[i] {
					t.Fatalf("ActiveWindows = %v, want labels %v", got, tt.want)
				}
			}
		})
	}
}

func TestActiveWindowsBoundsInclusive(t *testing.T) {
	t.Parallel()
	ws := []Window{{Label: "30", Min: 20, Max: 40}}
	now := time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC)

	for _, mins := range []float64{20, 40} {
		target := now.Add(time.Duration(mins * float64(time.Minute)))
		if got := ActiveWindows(now, target, ws); len(got) != 1 {
			t.Fatalf("boundary %v minutes: got %v, want one window", mins, got)
		}
	}
	for _, mins := range []float64{19.99, 40.01} {
		target := now.Add(time.Duration(mins * float64(time.Minute)))
		if got := ActiveWindows(now, target, ws); len(got) != 0 {
			t.Fatalf("outside %v minutes: got %v, want none", mins, got)
		}
	}
}

func TestActiveWindowsReturnsEveryMatch(t *testing.T) {
	t.Parallel()
	// Overlap is rejected by config validation, but evaluation itself must not
	// silently pick one.
	ws := []Window{
		{Label: "a", Min: 0, Max: 30},
		{Label: "b", Min: 25, Max: 60},
	}
	now := time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC)
	got := ActiveWindows(now, now.Add(28*time.Minute), ws)
	if len(got) != 2 {
		t.Fatalf("got %v, want both windows", got)
	}
}
