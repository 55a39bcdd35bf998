// Package history keeps a SQLite ledger of compile runs so the CLI can show
// what was built, when, and how it ended.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/texforge/core/compile"
	"github.com/FocuswithJustin/texforge/core/errors"
	"github.com/FocuswithJustin/texforge/core/sqlite"
)

// Status is the outcome of a compile run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// Run is one row of the ledger.
type Run struct {
	ID           string
	Job          string
	SourceDigest string
	Executable   string
	Status       Status
	ExitCode     int
	Duration     time.Duration
	Cached       bool
	PDFPath      string
	Error        string
	StartedAt    time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	job           TEXT NOT NULL,
	source_digest TEXT NOT NULL DEFAULT '',
	executable    TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	exit_code     INTEGER NOT NULL DEFAULT 0,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	cached        INTEGER NOT NULL DEFAULT 0,
	pdf_path      TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	started_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

// timeLayout is fixed-width so started_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultLimit is used by List when limit is not positive.
const DefaultLimit = 20

// Ledger is an open history database. It is safe for concurrent use.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewIO("create", dir, err)
		}
	}
	db, err := sqlite.OpenFile(path, sqlite.DefaultPragmas())
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate %s: %w", path, err)
	}
	return &Ledger{db: db, path: path}, nil
}

// OpenReadOnly opens an existing ledger for listing. A missing file is
// reported as errors.ErrNotFound; Record fails on a read-only ledger.
func OpenReadOnly(path string) (*Ledger, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("history %s: %w", path, errors.ErrNotFound)
		}
		return nil, errors.NewIO("stat", path, err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	return &Ledger{db: db, path: path}, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores r and returns its ID, assigning a new UUID when r.ID is
// empty and the current time when r.StartedAt is zero.
func (l *Ledger) Record(ctx context.Context, r Run) (string, error) {
	if r.Job == "" {
		return "", fmt.Errorf("%w: run has no job name", errors.ErrInvalidInput)
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = StatusSuccess
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, job, source_digest, executable, status, exit_code, duration_ms, cached, pdf_path, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Job, r.SourceDigest, r.Executable, string(r.Status), r.ExitCode,
		r.Duration.Milliseconds(), boolToInt(r.Cached), r.PDFPath, r.Error,
		r.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("history: record %s: %w", r.Job, err)
	}
	return r.ID, nil
}

const selectRun = `SELECT id, job, source_digest, executable, status, exit_code, duration_ms, cached, pdf_path, error, started_at FROM runs`

// List returns up to limit runs, newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := l.db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return runs, nil
}

// Get returns the run with the given ID, or an error wrapping
// errors.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, id string) (Run, error) {
	row := l.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run %s: %w", id, errors.ErrNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r          Run
		status     string
		durationMS int64
		cached     int
		startedAt  string
	)
	err := s.Scan(&r.ID, &r.Job, &r.SourceDigest, &r.Executable, &status, &r.ExitCode,
		&durationMS, &cached, &r.PDFPath, &r.Error, &startedAt)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("history: scan: %w", err)
	}
	r.Status = Status(status)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.Cached = cached != 0
	r.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return Run{}, &errors.ParseError{Format: "timestamp", Message: startedAt, Err: err}
	}
	return r, nil
}

// RunFromOutcome builds a ledger row from the result or error of
// compile.Compiler.Compile.
func RunFromOutcome(job, executable string, started time.Time, res *compile.Result, err error) Run {
	r := Run{
		Job:        job,
		Executable: executable,
		StartedAt:  started,
		Status:     StatusSuccess,
	}
	if res != nil {
		r.SourceDigest = res.SourceDigest
		r.ExitCode = res.ExitCode
		r.Duration = res.Duration
		r.Cached = res.Cached
		r.PDFPath = res.PDFPath
	}
	if err == nil {
		return r
	}

	r.Error = err.Error()
	r.Status = StatusFailed
	var cerr *errors.CompileError
	switch {
	case errors.Is(err, errors.ErrTimeout):
		r.Status = StatusTimeout
	case errors.As(err, &cerr):
		r.ExitCode = cerr.ExitCode
	}
	return r
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
