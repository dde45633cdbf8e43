package engine

import (
	"testing"

	"reminderbot/internal/event"
)

func TestBuildKeyShape(t *testing.T) {
	t.Parallel()
	got := BuildKey(event.KindClass, "Intro to SQL-2026-09-01", "30", "asha@example.org")
	want := "class|Intro to SQL-2026-09-01|30|asha@example.org"
	if got != want {
		t.Fatalf("BuildKey = %q, want %q", got, want)
	}
}

func TestBuildKeyEscaping(t *testing.T) {
	t.Parallel()
	// A separator inside a component must not collide with a key whose
	// components happen to align at the same byte offsets.
	a := BuildKey(event.KindClass, "x|y", "30", "z")
	b := BuildKey(event.KindClass, "x", "y|30", "z")
	if a == b {
		t.Fatalf("keys collide: %q", a)
	}
	c := BuildKey(event.KindClass, `x\`, "30", "z")
	d := BuildKey(event.KindClass, "x", `\30`, "z")
	if c == d {
		t.Fatalf("keys collide: %q", c)
	}
}

func TestBuildKeyDistinctPerDimension(t *testing.T) {
	t.Parallel()
	base := BuildKey(event.KindClass, "id", "30", "dest")
	for _, other := range []string{
		BuildKey(event.KindAssignment, "id", "30", "dest"),
		BuildKey(event.KindClass, "id2", "30", "dest"),
		BuildKey(event.KindClass, "id", "60", "dest"),
		BuildKey(event.KindClass, "id", "30", "dest2"),
	} {
		if other == base {
			t.Fatalf("expected distinct key, got %q twice", base)
		}
	}
}
