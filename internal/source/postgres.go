package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"reminderbot/internal/event"
	"reminderbot/internal/roster"
	logx "reminderbot/pkg/logx"
)

// pgStore serves the postgres backend through a pgx pool.
type pgStore struct {
	pool    *pgxpool.Pool
	log     logx.Logger
	loc     *time.Location
	timeout time.Duration
}

const (
	pgSelectClasses = `SELECT course,
		COALESCE(batch_name, ''), COALESCE(year::text, ''), COALESCE(mode, ''),
		session_name, date, time
	FROM classes`

	pgSelectAssignments = `SELECT course,
		COALESCE(batch_name, ''), COALESCE(year::text, ''), COALESCE(mode, ''),
		subject, due_date
	FROM assignments`

	pgSelectStudents = `SELECT name, email, COALESCE(discord_id, ''), course,
		COALESCE(batch_name, ''), COALESCE(year::text, ''), COALESCE(mode, '')
	FROM students`
)

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse source DSN: %w", err)
	}
	poolCfg.MaxConns = 4
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping source database: %w", err)
	}
	return &pgStore{pool: pool, log: log, loc: cfg.loc(), timeout: cfg.timeout()}, nil
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *pgStore) Classes(ctx context.Context) ([]event.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, pgSelectClasses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var r classRow
		if err := rows.Scan(&r.course, &r.batch, &r.year, &r.mode, &r.session, &r.date, &r.clock); err != nil {
			return nil, err
		}
		if ev, ok := classEvent(r, s.loc, s.log); ok {
			out = append(out, ev)
		}
	}
	return out, rows.Err()
}

func (s *pgStore) Assignments(ctx context.Context) ([]event.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, pgSelectAssignments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var r assignmentRow
		if err := rows.Scan(&r.course, &r.batch, &r.year, &r.mode, &r.subject, &r.due); err != nil {
			return nil, err
		}
		if ev, ok := assignmentEvent(r, s.loc, s.log); ok {
			out = append(out, ev)
		}
	}
	return out, rows.Err()
}

func (s *pgStore) Students(ctx context.Context) ([]roster.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, pgSelectStudents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []roster.Student
	for rows.Next() {
		var st roster.Student
		if err := rows.Scan(&st.Name, &st.Email, &st.DiscordID, &st.Course, &st.Batch, &st.Year, &st.Mode); err != nil {
			return nil, err
		}
		out = append(out, st.Normalized())
	}
	return out, rows.Err()
}
