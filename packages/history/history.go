// Package history persists run summaries to a local SQLite database so
// past runs can be listed and compared from the CLI.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/restflow/restflow/packages/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	errors      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cases (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	suite       TEXT NOT NULL,
	module      TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_cases_run ON cases(run_id);
`

// RunSummary is one stored run.
type RunSummary struct {
	ID        int64
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Errors    int
	Skipped   int
}

// Ok reports whether the stored run was fully green.
func (r *RunSummary) Ok() bool {
	return r.Failed == 0 && r.Errors == 0
}

// CaseRecord is one stored case outcome.
type CaseRecord struct {
	Suite    string
	Module   string
	Name     string
	Outcome  string
	Duration time.Duration
	Error    string
}

// Store is a SQLite-backed run archive.
type Store struct {
	db *sql.DB
}

// Open creates or opens the archive at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finished run and its cases, returning the run id.
func (s *Store) Record(ctx context.Context, run *engine.RunResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	passed, failed, errs, skipped := run.Totals()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, duration_ms, passed, failed, errors, skipped)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), run.Duration.Milliseconds(), passed, failed, errs, skipped)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cases (run_id, suite, module, name, outcome, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing case insert: %w", err)
	}
	defer stmt.Close()

	for _, suite := range run.Suites {
		for _, c := range suite.Cases {
			errMsg := ""
			if c.Err != nil {
				errMsg = c.Err.Error()
			}
			if _, err := stmt.ExecContext(ctx,
				runID, suite.Suite, c.Module, c.Name, string(c.Outcome),
				c.Duration.Milliseconds(), errMsg); err != nil {
				return 0, fmt.Errorf("inserting case %q: %w", c.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, passed, failed, errors, skipped
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []*RunSummary
	for rows.Next() {
		var r RunSummary
		var ms int64
		if err := rows.Scan(&r.ID, &r.StartedAt, &ms, &r.Passed, &r.Failed, &r.Errors, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Cases returns the stored case outcomes of one run, in insertion order.
func (s *Store) Cases(ctx context.Context, runID int64) ([]*CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT suite, module, name, outcome, duration_ms, error
		 FROM cases WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying cases: %w", err)
	}
	defer rows.Close()

	var out []*CaseRecord
	for rows.Next() {
		var c CaseRecord
		var ms int64
		if err := rows.Scan(&c.Suite, &c.Module, &c.Name, &c.Outcome, &ms, &c.Error); err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		c.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep runs and their cases.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return fmt.Errorf("keep must be positive, got %d", keep)
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM cases WHERE run_id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?);
		DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?);`,
		keep, keep)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	return nil
}
