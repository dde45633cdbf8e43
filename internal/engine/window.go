// Package engine evaluates which reminders must fire on each poll cycle and
// guarantees every (event, window, destination) fires at most once.
package engine

import (
	"time"

	"reminderbot/internal/config"
)

// Window is one lead-time range: the reminder labeled Label is eligible while
// the event is between Min and Max minutes away, bounds inclusive.
//
// Window tables for one event kind must not overlap (config validation
// enforces this), but ActiveWindows does not rely on it: it returns every
// match.
type Window struct {
	Label string
	Min   float64
	Max   float64
}

// WindowsFromConfig converts the config representation.
func WindowsFromConfig(ws []config.WindowConfig) []Window {
	out := make([]Window, 0, len(ws))
	for _, w := range ws {
		out = append(out, Window{Label: w.Label, Min: w.Min, Max: w.Max})
	}
	return out
}

// ActiveWindows returns the windows currently active for an event happening
// at target. Past events (target before now) match nothing; reminders are
// never sent retroactively.
func ActiveWindows(now, target time.Time, windows []Window) []Window {
	minutesLeft := target.Sub(now).Minutes()
	if minutesLeft < 0 {
		return nil
	}
	var active []Window
	for _, w := range windows {
		if w.Min <= minutesLeft && minutesLeft <= w.Max {
			active = append(active, w)
		}
	}
	return active
}
