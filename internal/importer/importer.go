// Package importer loads cohort CSV exports into the schedule store.
//
// Each cohort ships up to three files named after the cohort:
//
//	<COURSE>_<BATCH>_<YEAR>[_online].students.csv    name,email[,discord_id]
//	<COURSE>_<BATCH>_<YEAR>[_online].classes.csv     session_name,date,time
//	<COURSE>_<BATCH>_<YEAR>[_online].assignments.csv subject,due_date
//
// Import is replace-then-insert per (course, batch, year) inside one
// transaction, so a re-export never duplicates rows and a failed import
// never leaves a cohort half-loaded. All statements are parameterized; file
// contents are untrusted text.
package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	logx "reminderbot/pkg/logx"
)

type Importer struct {
	db     *sql.DB
	driver string
	log    logx.Logger
}

// Summary reports what one ImportDir pass loaded.
type Summary struct {
	Cohorts     int
	Students    int
	Classes     int
	Assignments int
}

// Open connects with write access. Driver names match the daemon's source
// drivers; "postgres" goes through pgx's database/sql adapter.
func Open(ctx context.Context, driver, dsn string, log logx.Logger) (*Importer, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver = strings.ToLower(strings.TrimSpace(driver))
	sqlDriver := driver
	switch driver {
	case "postgres":
		sqlDriver = "pgx"
	case "sqlite3":
		driver, sqlDriver = "sqlite", "sqlite"
	case "sqlite", "mysql":
	default:
		return nil, fmt.Errorf("unknown import driver: %s", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Importer{db: db, driver: driver, log: log}, nil
}

func (im *Importer) Close() error { return im.db.Close() }

// EnsureSchema creates the three tables if missing.
func (im *Importer) EnsureSchema(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	switch im.driver {
	case "postgres":
		serial = "SERIAL PRIMARY KEY"
	case "mysql":
		serial = "INTEGER PRIMARY KEY AUTO_INCREMENT"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS students (
			student_id %s,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			discord_id TEXT,
			course TEXT NOT NULL,
			batch_name TEXT,
			year TEXT,
			mode TEXT
		)`, serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS classes (
			class_id %s,
			course TEXT NOT NULL,
			batch_name TEXT,
			year TEXT,
			mode TEXT,
			session_name TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL
		)`, serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS assignments (
			assignment_id %s,
			course TEXT NOT NULL,
			batch_name TEXT,
			year TEXT,
			mode TEXT,
			subject TEXT NOT NULL,
			due_date TEXT NOT NULL
		)`, serial),
	}
	for _, q := range stmts {
		if _, err := im.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Counts reports row totals per table.
func (im *Importer) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, 3)
	for _, table := range []string{"students", "classes", "assignments"} {
		var n int
		if err := im.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}

// cohort identifies one import unit, derived from the file name.
type cohort struct {
	course, batch, year, mode string
}

func parseCohort(base string) (cohort, error) {
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return cohort{}, fmt.Errorf("file name %q: want COURSE_BATCH_YEAR[_online]", base)
	}
	c := cohort{course: parts[0], batch: parts[1], year: parts[2], mode: "Offline"}
	if len(parts) > 3 && strings.EqualFold(parts[3], "online") {
		c.mode = "Online"
	}
	return c, nil
}

// ImportDir walks dir for cohort CSV files and loads them.
func (im *Importer) ImportDir(ctx context.Context, dir string) (Summary, error) {
	var sum Summary

	entries, err := os.ReadDir(dir)
	if err != nil {
		return sum, err
	}

	// Group files per cohort so replace-then-insert runs once per cohort.
	type files struct{ students, classes, assignments string }
	byCohort := map[string]*files{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".csv")
		var kind string
		for _, k := range []string{"students", "classes", "assignments"} {
			if strings.HasSuffix(name, "."+k) {
				kind = k
				name = strings.TrimSuffix(name, "."+k)
				break
			}
		}
		if kind == "" {
			im.log.Debug("skipping unrecognized file", logx.String("file", e.Name()))
			continue
		}
		f := byCohort[name]
		if f == nil {
			f = &files{}
			byCohort[name] = f
		}
		path := filepath.Join(dir, e.Name())
		switch kind {
		case "students":
			f.students = path
		case "classes":
			f.classes = path
		case "assignments":
			f.assignments = path
		}
	}

	names := make([]string, 0, len(byCohort))
	for n := range byCohort {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		co, err := parseCohort(name)
		if err != nil {
			im.log.Warn("skipping cohort", logx.Err(err))
			continue
		}
		f := byCohort[name]
		s, err := im.importCohort(ctx, co, f.students, f.classes, f.assignments)
		if err != nil {
			return sum, fmt.Errorf("cohort %s: %w", name, err)
		}
		sum.Cohorts++
		sum.Students += s.Students
		sum.Classes += s.Classes
		sum.Assignments += s.Assignments
		im.log.Info("cohort imported",
			logx.String("cohort", name),
			logx.Int("students", s.Students),
			logx.Int("classes", s.Classes),
			logx.Int("assignments", s.Assignments))
	}
	return sum, nil
}

func (im *Importer) importCohort(ctx context.Context, co cohort, studentsPath, classesPath, assignmentsPath string) (Summary, error) {
	var sum Summary

	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return sum, err
	}
	defer func() { _ = tx.Rollback() }()

	if studentsPath != "" {
		n, err := im.importTable(ctx, tx, co, "students", studentsPath, 2,
			`INSERT INTO students (name, email, discord_id, course, batch_name, year, mode) VALUES (?,?,?,?,?,?,?)`,
			func(rec []string) []any {
				discord := ""
				if len(rec) > 2 {
					discord = strings.TrimSpace(rec[2])
				}
				return []any{strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]), discord}
			})
		if err != nil {
			return sum, err
		}
		sum.Students = n
	}
	if classesPath != "" {
		n, err := im.importTable(ctx, tx, co, "classes", classesPath, 3,
			`INSERT INTO classes (session_name, date, time, course, batch_name, year, mode) VALUES (?,?,?,?,?,?,?)`,
			func(rec []string) []any {
				return []any{strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]), strings.TrimSpace(rec[2])}
			})
		if err != nil {
			return sum, err
		}
		sum.Classes = n
	}
	if assignmentsPath != "" {
		n, err := im.importTable(ctx, tx, co, "assignments", assignmentsPath, 2,
			`INSERT INTO assignments (subject, due_date, course, batch_name, year, mode) VALUES (?,?,?,?,?,?)`,
			func(rec []string) []any {
				return []any{strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])}
			})
		if err != nil {
			return sum, err
		}
		sum.Assignments = n
	}

	return sum, tx.Commit()
}

// importTable replaces a cohort's rows in one table from one CSV file.
// ownCols maps a CSV record to the table-specific leading columns; cohort
// columns (course, batch_name, year, mode) are appended by this function.
func (im *Importer) importTable(ctx context.Context, tx *sql.Tx, co cohort, table, path string, minFields int, insert string, ownCols func([]string) []any) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	del := fmt.Sprintf(`DELETE FROM %s WHERE course = ? AND batch_name = ? AND year = ?`, table)
	if _, err := tx.ExecContext(ctx, im.rebind(del), co.course, co.batch, co.year); err != nil {
		return 0, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	insert = im.rebind(insert)

	n := 0
	first := true
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("%s: %w", path, err)
		}
		// Tolerate a header row.
		if first {
			first = false
			if looksLikeHeader(rec) {
				continue
			}
		}
		if len(rec) < minFields {
			im.log.Warn("skipping short row", logx.String("file", path), logx.Int("fields", len(rec)))
			continue
		}
		args := append(ownCols(rec), co.course, co.batch, co.year, co.mode)
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return n, fmt.Errorf("%s: %w", path, err)
		}
		n++
	}
	return n, nil
}

func looksLikeHeader(rec []string) bool {
	for _, f := range rec {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "name", "email", "subject", "session_name", "date", "time", "due_date", "discord_id":
			return true
		}
	}
	return false
}

// rebind rewrites ? placeholders to $1..$n for postgres.
func (im *Importer) rebind(q string) string {
	if im.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
