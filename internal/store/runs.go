package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/detest/internal/engine"
)

// Run is one recorded run.
type Run struct {
	ID        string
	Suite     string
	StartedAt time.Time
	Stats     engine.Stats

	// Trace is the run's trace rendered as YAML.
	Trace string

	// Fingerprint identifies the run's failure set; see Fingerprint.
	Fingerprint string

	// Failures is populated by GetRun; ListRuns leaves it empty.
	Failures []FailureRecord
}

// FailureRecord is one failure of a recorded run.
type FailureRecord struct {
	// Path is the slash-joined descriptions of the enclosing tests.
	Path     string             `json:"path"`
	Kind     engine.FailureKind `json:"kind"`
	Message  string             `json:"message"`
	Location string             `json:"location,omitempty"`
}

// NewRun builds the record of a finished run.
func NewRun(suite string, startedAt time.Time, r *engine.Report, ids IDGenerator) (Run, error) {
	trace, err := yaml.Marshal(r.Trace)
	if err != nil {
		return Run{}, fmt.Errorf("encode trace: %w", err)
	}

	run := Run{
		ID:        ids.Generate(),
		Suite:     suite,
		StartedAt: startedAt.UTC(),
		Stats:     r.Stats,
		Trace:     string(trace),
	}
	for _, fa := range r.Trace.Failures() {
		run.Failures = append(run.Failures, FailureRecord{
			Path:     strings.Join(fa.Path, "/"),
			Kind:     fa.Failure.Kind,
			Message:  fa.Failure.Message,
			Location: location(fa.Failure),
		})
	}
	run.Fingerprint = Fingerprint(run.Failures)
	return run, nil
}

func location(f *engine.Failure) string {
	if f.Bind != "" {
		return f.Bind
	}
	if len(f.Call) > 0 {
		return f.Call[0]
	}
	return ""
}

// WriteRun inserts a run and its failures atomically.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - rewriting a recorded
// run is silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, suite, started_at, elapsed_ns, pass, fail, error, trace, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Suite,
		run.StartedAt.UnixNano(),
		int64(run.Stats.Time),
		run.Stats.Pass,
		run.Stats.Fail,
		run.Stats.Error,
		run.Trace,
		run.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: rows affected: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for i, f := range run.Failures {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO failures (run_id, ordinal, path, kind, message, location)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i, f.Path, string(f.Kind), f.Message, f.Location)
		if err != nil {
			return fmt.Errorf("write failure %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, suite, started_at, elapsed_ns, pass, fail, error, trace, fingerprint
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given ID together with its failures.
// Returns an error wrapping ErrNotFound if no such run was recorded.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, suite, started_at, elapsed_ns, pass, fail, error, trace, fingerprint
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, err
	}

	run.Failures, err = s.Failures(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// Failures returns the failures of a run in execution order.
// Returns an empty slice (not nil) if the run had none.
func (s *Store) Failures(ctx context.Context, runID string) ([]FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, kind, message, location
		FROM failures
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []FailureRecord{}
	for rows.Next() {
		var f FailureRecord
		var kind string
		if err := rows.Scan(&f.Path, &kind, &f.Message, &f.Location); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Kind = engine.FailureKind(kind)
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var startedAt, elapsed int64
	err := row.Scan(
		&run.ID,
		&run.Suite,
		&startedAt,
		&elapsed,
		&run.Stats.Pass,
		&run.Stats.Fail,
		&run.Stats.Error,
		&run.Trace,
		&run.Fingerprint,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.Unix(0, startedAt).UTC()
	run.Stats.Time = time.Duration(elapsed)
	return run, nil
}
