package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "reminderbot/pkg/logx"
)

func openFileStore(t *testing.T, path string) Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	return s
}

func TestFileStoreMarkAndContains(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openFileStore(t, filepath.Join(t.TempDir(), "dedup.db"))
	defer s.Close()

	ok, err := s.Contains(ctx, "class|Intro-2026-09-01|30|a@uni.org")
	if err != nil || ok {
		t.Fatalf("Contains on empty store = (%v, %v)", ok, err)
	}
	if err := s.MarkSent(ctx, "class|Intro-2026-09-01|30|a@uni.org"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	// Re-marking is a no-op.
	if err := s.MarkSent(ctx, "class|Intro-2026-09-01|30|a@uni.org"); err != nil {
		t.Fatalf("MarkSent again: %v", err)
	}
	ok, err = s.Contains(ctx, "class|Intro-2026-09-01|30|a@uni.org")
	if err != nil || !ok {
		t.Fatalf("Contains after mark = (%v, %v)", ok, err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dedup.db")

	s := openFileStore(t, path)
	keys := []string{"k1", "k2", "k3"}
	for _, k := range keys {
		if err := s.MarkSent(ctx, k); err != nil {
			t.Fatalf("MarkSent(%q): %v", k, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := openFileStore(t, path)
	defer s2.Close()
	for _, k := range keys {
		ok, err := s2.Contains(ctx, k)
		if err != nil || !ok {
			t.Fatalf("key %q lost across reopen: (%v, %v)", k, ok, err)
		}
	}
}

func TestFileStoreCompact(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dedup.db")
	s := openFileStore(t, path)
	defer s.Close()

	if err := s.MarkSent(ctx, "fresh"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	// Nothing is old enough yet.
	n, err := s.Compact(ctx, time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("Compact = (%d, %v), want 0 pruned", n, err)
	}
	// olderThan <= 0 disables pruning entirely.
	n, err = s.Compact(ctx, 0)
	if err != nil || n != 0 {
		t.Fatalf("Compact(0) = (%d, %v), want no-op", n, err)
	}

	// Everything older than a nanosecond is stale a moment later.
	time.Sleep(5 * time.Millisecond)
	n, err = s.Compact(ctx, time.Nanosecond)
	if err != nil || n != 1 {
		t.Fatalf("Compact = (%d, %v), want 1 pruned", n, err)
	}
	ok, err := s.Contains(ctx, "fresh")
	if err != nil || ok {
		t.Fatalf("pruned key still present: (%v, %v)", ok, err)
	}
}

func TestFileStoreEmptyKeyIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openFileStore(t, filepath.Join(t.TempDir(), "dedup.db"))
	defer s.Close()

	if err := s.MarkSent(ctx, "   "); err != nil {
		t.Fatalf("MarkSent(blank): %v", err)
	}
	ok, err := s.Contains(ctx, "")
	if err != nil || ok {
		t.Fatalf("Contains(blank) = (%v, %v)", ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	if err := m.MarkSent(ctx, "k"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := m.MarkSent(ctx, "k"); err != nil {
		t.Fatalf("MarkSent again: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
	ok, err := m.Contains(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Contains = (%v, %v)", ok, err)
	}
}
