package engine

import (
	"strings"

	"reminderbot/internal/event"
)

// Reminder keys are what the dedup store persists, so their shape is a
// compatibility surface: changing it resends every reminder in flight.
//
// Format: kind|naturalID|windowLabel|destination, with "|" and "\" escaped
// inside components. Natural identity (not row ids) keeps keys stable across
// schedule re-imports.

const keySep = "|"

// BuildKey derives the idempotency key for one (event, window, destination).
func BuildKey(kind event.Kind, naturalID, windowLabel, destination string) string {
	parts := []string{string(kind), naturalID, windowLabel, destination}
	for i, p := range parts {
		parts[i] = escapeKeyPart(p)
	}
	return strings.Join(parts, keySep)
}

func escapeKeyPart(s string) string {
	if !strings.ContainsAny(s, `\|`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	for _, r := range s {
		if r == '\\' || r == '|' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
