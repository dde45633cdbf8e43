package source

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"reminderbot/internal/event"
	"reminderbot/internal/roster"
	logx "reminderbot/pkg/logx"
)

// sqlStore serves the sqlite and mysql backends through database/sql.
type sqlStore struct {
	db      *sql.DB
	log     logx.Logger
	loc     *time.Location
	timeout time.Duration
}

// CAST(year AS CHAR) is the one target both dialects accept: MySQL has no
// TEXT cast target, and on SQLite CHAR carries TEXT affinity.
const (
	sqlSelectClasses = `SELECT course,
		COALESCE(batch_name, ''), COALESCE(CAST(year AS CHAR), ''), COALESCE(mode, ''),
		session_name, date, time
	FROM classes`

	sqlSelectAssignments = `SELECT course,
		COALESCE(batch_name, ''), COALESCE(CAST(year AS CHAR), ''), COALESCE(mode, ''),
		subject, due_date
	FROM assignments`

	sqlSelectStudents = `SELECT name, email, COALESCE(discord_id, ''), course,
		COALESCE(batch_name, ''), COALESCE(CAST(year AS CHAR), ''), COALESCE(mode, '')
	FROM students`
)

func openSQL(ctx context.Context, driver string, cfg Config, log logx.Logger) (Store, error) {
	if driver == "sqlite3" {
		driver = "sqlite"
	}
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// SQLite prefers a small number of concurrent readers over a pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlStore{db: db, log: log, loc: cfg.loc(), timeout: cfg.timeout()}, nil
}

func (s *sqlStore) Close() error { return s.db.Close() }

func (s *sqlStore) Classes(ctx context.Context) ([]event.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, sqlSelectClasses)
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

func (s *sqlStore) Assignments(ctx context.Context) ([]event.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, sqlSelectAssignments)
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

func (s *sqlStore) Students(ctx context.Context) ([]roster.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, sqlSelectStudents)
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
