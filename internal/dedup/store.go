// Package dedup persists the set of reminder keys that have already been
// dispatched. This set is the system's only durable state: it is what makes
// every poll cycle safely repeatable.
//
// Contracts:
//   - MarkSent is idempotent; marking an existing key is a no-op.
//   - Keys survive process restart (sqlite/file/postgres backends).
//   - The engine never prunes during evaluation; Compact is a TTL sweep
//     invoked by the operator or the scheduled compaction job.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logx "reminderbot/pkg/logx"
)

// Store is the persisted sent-reminder key set.
type Store interface {
	Contains(ctx context.Context, key string) (bool, error)
	MarkSent(ctx context.Context, key string) error
	// Compact removes keys marked before now-olderThan and reports how many
	// were dropped. olderThan <= 0 is a no-op.
	Compact(ctx context.Context, olderThan time.Duration) (int, error)
	Close() error
}

// Config selects and tunes a backend.
type Config struct {
	Driver      string
	Path        string        // sqlite and file drivers
	DSN         string        // postgres driver
	BusyTimeout time.Duration // sqlite only; 0 means 5s
}

// Open initializes the configured store.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlite", "sqlite3":
		return openSQLite(ctx, cfg, log)
	case "file":
		return openFile(cfg, log)
	case "postgres":
		return openPostgres(ctx, cfg, log)
	case "":
		return nil, errors.New("dedup driver is required")
	default:
		return nil, fmt.Errorf("unknown dedup driver: %s", cfg.Driver)
	}
}
