package dedup

import (
	"context"
	"sync"
	"time"
)

// Memory is a volatile Store for tests. It does not survive a restart, so
// config validation refuses it for the daemon.
type Memory struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{sent: map[string]time.Time{}}
}

func (m *Memory) Contains(ctx context.Context, key string) (bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sent[key]
	return ok, nil
}

func (m *Memory) MarkSent(ctx context.Context, key string) error {
	_ = ctx
	if key == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sent[key]; !ok {
		m.sent[key] = time.Now()
	}
	return nil
}

func (m *Memory) Compact(ctx context.Context, olderThan time.Duration) (int, error) {
	_ = ctx
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, at := range m.sent {
		if at.Before(cutoff) {
			delete(m.sent, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }

// Len reports the number of stored keys (test helper).
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
