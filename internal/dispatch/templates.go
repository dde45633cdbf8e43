package dispatch

import (
	"fmt"
	"strings"

	"reminderbot/internal/engine"
	"reminderbot/internal/event"
)

// Message bodies are fixed templates keyed by (kind, window label). Wording
// tracks what students already receive; change with care.

// EmailSubject renders the subject line for one decision.
func EmailSubject(d engine.Decision) string {
	if d.Event.Kind == event.KindAssignment {
		return "Assignment Reminder: " + d.Event.Title
	}
	return "Class Reminder: " + d.Event.Title
}

// EmailBody renders the plain-text email body.
func EmailBody(d engine.Decision) string {
	name := d.Recipient.DisplayName
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	if d.Event.Kind == event.KindAssignment {
		b.WriteString("Assignment Reminder\n\n")
		fmt.Fprintf(&b, "Topic : %s\n", d.Event.Title)
		fmt.Fprintf(&b, "Course: %s\n", strings.ToUpper(d.Event.Course))
		fmt.Fprintf(&b, "Batch : %s (%s)\n", d.Event.Batch, d.Event.Mode)
		fmt.Fprintf(&b, "Due in %s minutes\n", d.Window.Label)
	} else {
		b.WriteString("Upcoming Class Reminder\n\n")
		fmt.Fprintf(&b, "Topic : %s\n", d.Event.Title)
		fmt.Fprintf(&b, "Course: %s\n", d.Event.Course)
		fmt.Fprintf(&b, "Batch : %s (%s)\n", d.Event.Batch, d.Event.Mode)
		fmt.Fprintf(&b, "Starts in %s minutes\n", d.Window.Label)
	}
	b.WriteString("\n- Automated Reminder System")
	return b.String()
}

// ChatBody renders the group-chat message.
func ChatBody(d engine.Decision) string {
	var b strings.Builder
	if d.Event.Kind == event.KindAssignment {
		b.WriteString("📝 Assignment Reminder\n\n")
		fmt.Fprintf(&b, "📌 %s\n", d.Event.Title)
		fmt.Fprintf(&b, "📚 %s\n", d.Event.Course)
		fmt.Fprintf(&b, "👥 %s (%s)\n", d.Event.Batch, d.Event.Mode)
		fmt.Fprintf(&b, "⏳ %s minutes remaining", d.Window.Label)
		return b.String()
	}

	// The shortest class window gets a "join now" tone.
	if d.Window.Label == "2" {
		fmt.Fprintf(&b, "🚀 Class Starting Soon (%s minutes!)\n\n", d.Window.Label)
	} else {
		fmt.Fprintf(&b, "⏰ Class Reminder (%s minutes left)\n\n", d.Window.Label)
	}
	fmt.Fprintf(&b, "📘 %s\n", d.Event.Title)
	fmt.Fprintf(&b, "📚 %s\n", d.Event.Course)
	fmt.Fprintf(&b, "👥 %s (%s)\n", d.Event.Batch, d.Event.Mode)
	if d.Window.Label == "2" {
		b.WriteString("🎓 Join now!")
	} else {
		fmt.Fprintf(&b, "🕒 Starts at %s", d.Event.RawTime)
	}
	return b.String()
}
