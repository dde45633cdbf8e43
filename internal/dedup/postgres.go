package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	logx "reminderbot/pkg/logx"
)

// pgStore keeps the key set in the same Postgres instance the schedules live
// in, which is how hosted deployments run: one managed database, shared by
// the importer and both pollers.
type pgStore struct {
	pool *pgxpool.Pool
	log  logx.Logger
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS sent_reminders (
	reminder_key TEXT PRIMARY KEY,
	sent_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dedup DSN: %w", err)
	}
	poolCfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure sent_reminders table: %w", err)
	}
	return &pgStore{pool: pool, log: log}, nil
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *pgStore) Contains(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM sent_reminders WHERE reminder_key = $1`, key).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *pgStore) MarkSent(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sent_reminders (reminder_key) VALUES ($1) ON CONFLICT DO NOTHING`, key)
	return err
}

func (s *pgStore) Compact(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sent_reminders WHERE sent_at < now() - $1::interval`,
		fmt.Sprintf("%d milliseconds", olderThan.Milliseconds()))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
