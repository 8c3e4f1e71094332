package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a load run id is unknown.
var ErrRunNotFound = errors.New("load run not found")

// Run is one load_runs audit row.
type Run struct {
	ID             uuid.UUID
	SourcePath     string
	SourceChecksum string
	StartedAt      time.Time
	FinishedAt     *time.Time
	RowsRead       int
	Persisted      int
	Skipped        int
	Failed         int
}

// RunStore records load runs in load_runs.
type RunStore struct {
	conn *Connection
	now  func() time.Time
}

// NewRunStore creates a run store on an open connection.
func NewRunStore(conn *Connection) (*RunStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &RunStore{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start inserts a new run with a fresh id and returns it.
func (s *RunStore) Start(ctx context.Context, sourcePath, checksum string) (*Run, error) {
	run := &Run{
		ID:             uuid.New(),
		SourcePath:     sourcePath,
		SourceChecksum: checksum,
		StartedAt:      s.now(),
	}

	query := `
		INSERT INTO load_runs (id, source_path, source_checksum, started_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.conn.ExecContext(ctx, query, run.ID.String(), sourcePath, checksum, run.StartedAt); err != nil {
		return nil, fmt.Errorf("failed to record load run: %w", err)
	}

	return run, nil
}

// Finish stores the final counts of run and stamps its finish time.
func (s *RunStore) Finish(ctx context.Context, run *Run) error {
	finishedAt := s.now()

	query := `
		UPDATE load_runs
		SET finished_at = $1, rows_read = $2, persisted = $3, skipped = $4, failed = $5
		WHERE id = $6
	`

	result, err := s.conn.ExecContext(ctx, query,
		finishedAt, run.RowsRead, run.Persisted, run.Skipped, run.Failed, run.ID.String())
	if err != nil {
		return fmt.Errorf("failed to finish load run %s: %w", run.ID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}

	run.FinishedAt = &finishedAt

	return nil
}

// Get returns the run with id.
func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, source_path, source_checksum, started_at, finished_at, rows_read, persisted, skipped, failed
		FROM load_runs
		WHERE id = $1
	`

	var (
		run        Run
		rawID      string
		finishedAt sql.NullTime
	)

	err := s.conn.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID,
		&run.SourcePath,
		&run.SourceChecksum,
		&run.StartedAt,
		&finishedAt,
		&run.RowsRead,
		&run.Persisted,
		&run.Skipped,
		&run.Failed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read load run %s: %w", id, err)
	}

	if run.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("invalid load run id %q: %w", rawID, err)
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return &run, nil
}
