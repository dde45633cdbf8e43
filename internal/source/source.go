// Package source adapts the institution's relational store (students,
// classes, assignments) into the engine's event and roster models.
//
// The adapter is strictly read-only. Text fields are normalized on read and
// date/time columns are combined into tz-aware instants; rows whose
// timestamps cannot be parsed are logged and dropped for the cycle rather
// than failing the fetch.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reminderbot/internal/event"
	"reminderbot/internal/roster"
	logx "reminderbot/pkg/logx"
)

// Store is the read-only query surface the poll loop fetches from.
type Store interface {
	Classes(ctx context.Context) ([]event.Event, error)
	Assignments(ctx context.Context) ([]event.Event, error)
	Students(ctx context.Context) ([]roster.Student, error)
	Close() error
}

// Config selects and tunes a backend.
type Config struct {
	Driver  string
	DSN     string
	Timeout time.Duration  // per-query bound; 0 means 10s
	Loc     *time.Location // schedule timezone; nil means time.Local
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 10 * time.Second
}

func (c Config) loc() *time.Location {
	if c.Loc != nil {
		return c.Loc
	}
	return time.Local
}

// Open initializes the configured backend.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "postgres":
		return openPostgres(ctx, cfg, log)
	case "sqlite", "sqlite3", "mysql":
		return openSQL(ctx, driver, cfg, log)
	case "":
		return nil, errors.New("source driver is required")
	default:
		return nil, fmt.Errorf("unknown source driver: %s", cfg.Driver)
	}
}

// classRow / assignmentRow are the raw shapes shared by all backends.
type classRow struct {
	course, batch, year, mode string
	session, date, clock      string
}

type assignmentRow struct {
	course, batch, year, mode string
	subject, due              string
}

func classEvent(r classRow, loc *time.Location, log logx.Logger) (event.Event, bool) {
	at, err := event.ParseClassTime(r.date, r.clock, loc)
	if err != nil {
		log.Warn("dropping class row with unparsable time",
			logx.String("session", r.session), logx.String("date", r.date),
			logx.String("time", r.clock), logx.Err(err))
		return event.Event{}, false
	}
	return event.Event{
		Kind:    event.KindClass,
		Course:  event.NormalizeCourse(r.course),
		Batch:   event.NormalizeBatch(r.batch),
		Year:    event.NormalizeYear(r.year),
		Mode:    event.NormalizeMode(r.mode),
		Title:   strings.TrimSpace(r.session),
		At:      at,
		RawDate: strings.TrimSpace(r.date),
		RawTime: strings.TrimSpace(r.clock),
	}, true
}

func assignmentEvent(r assignmentRow, loc *time.Location, log logx.Logger) (event.Event, bool) {
	at, err := event.ParseDueTime(r.due, loc)
	if err != nil {
		log.Warn("dropping assignment row with unparsable due date",
			logx.String("subject", r.subject), logx.String("due_date", r.due), logx.Err(err))
		return event.Event{}, false
	}
	return event.Event{
		Kind:    event.KindAssignment,
		Course:  event.NormalizeCourse(r.course),
		Batch:   event.NormalizeBatch(r.batch),
		Year:    event.NormalizeYear(r.year),
		Mode:    event.NormalizeMode(r.mode),
		Title:   strings.TrimSpace(r.subject),
		At:      at,
		RawDate: strings.TrimSpace(r.due),
	}, true
}
