package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_at TEXT NOT NULL,
	kernel_release TEXT NOT NULL,
	module_dir TEXT NOT NULL,
	build_tool TEXT NOT NULL,
	jobs INTEGER NOT NULL,
	clean_ok INTEGER NOT NULL,
	exit_code INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
`

// Record is one recorded setup run.
type Record struct {
	ID            int64
	RunAt         time.Time
	KernelRelease string
	Dir           string
	BuildTool     string
	Jobs          int
	CleanOK       bool
	ExitCode      int
	Duration      time.Duration
}

// Store keeps setup runs in a local SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the history database at path, expanding a
// leading tilde.
func Open(path string) (*Store, error) {
	resolved, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("resolving history database path: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("creating history database directory: %w", err)
	}

	db, err := sql.Open("sqlite", resolved)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating history schema: %w", err)
	}
	return &Store{db: db, path: resolved}, nil
}

// Path returns the resolved database location.
func (s *Store) Path() string {
	return s.path
}

// Save inserts a run and returns its id.
func (s *Store) Save(ctx context.Context, r Record) (int64, error) {
	if r.RunAt.IsZero() {
		r.RunAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_at, kernel_release, module_dir, build_tool, jobs, clean_ok, exit_code, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunAt.UTC().Format(time.RFC3339), r.KernelRelease, r.Dir, r.BuildTool, r.Jobs, r.CleanOK, r.ExitCode,
		r.Duration.Milliseconds())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, run_at, kernel_release, module_dir, build_tool, jobs, clean_ok, exit_code, duration_ms
		FROM runs ORDER BY run_id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r          Record
			runAt      string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &runAt, &r.KernelRelease, &r.Dir, &r.BuildTool, &r.Jobs, &r.CleanOK, &r.ExitCode, &durationMS); err != nil {
			return nil, err
		}
		r.RunAt, _ = time.Parse(time.RFC3339, runAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
