package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RunStatus mirrors the Runs.Status column.
type RunStatus string

// Run statuses persisted in Runs.Status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Run is one pipeline execution. The Runs table survives schema rebuilds.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
	// ErrorMessage is set only for failed runs.
	ErrorMessage *string `json:"error,omitempty"`
	MovieRows    int     `json:"movie_rows"`
}

// runTimeLayout is fixed width so StartedAt sorts as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const createRunsSQL = `CREATE TABLE IF NOT EXISTS "Runs" (
	"Id" TEXT PRIMARY KEY,
	"StartedAt" TEXT NOT NULL,
	"FinishedAt" TEXT,
	"Status" TEXT NOT NULL,
	"ErrorMessage" TEXT,
	"MovieRows" INTEGER NOT NULL DEFAULT 0
)`

// StartRun records a run as running. Calling it twice for the same id
// resets the start time.
func (l *Loader) StartRun(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return l.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createRunsSQL); err != nil {
			return fmt.Errorf("create runs table: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO Runs (Id, StartedAt, Status) VALUES (?, ?, ?)
			ON CONFLICT(Id) DO UPDATE SET StartedAt = excluded.StartedAt, Status = excluded.Status`,
			id.String(), startedAt.UTC().Format(runTimeLayout), string(RunRunning))
		if err != nil {
			return fmt.Errorf("insert run %s: %w", id, err)
		}
		return nil
	})
}

// CompleteRun marks the run finished.
func (l *Loader) CompleteRun(
	ctx context.Context,
	id uuid.UUID,
	finishedAt time.Time,
	status RunStatus,
	movieRows int,
	errMsg *string,
) error {
	var msg sql.NullString
	if errMsg != nil {
		msg = sql.NullString{String: *errMsg, Valid: true}
	}
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE Runs SET FinishedAt = ?, Status = ?, MovieRows = ?, ErrorMessage = ?
			WHERE Id = ?`,
			finishedAt.UTC().Format(runTimeLayout), string(status), movieRows, msg, id.String())
		if err != nil {
			return fmt.Errorf("complete run %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("complete run %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("complete run %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.logger.Info("Run recorded", zap.String("run_id", id.String()), zap.String("status", string(status)))
	return nil
}

// ListRuns returns the most recent runs first.
func (r *Reader) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	exists, err := r.tableExists(ctx, "Runs")
	if err != nil {
		return nil, err
	}
	if !exists {
		return []Run{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT Id, StartedAt, FinishedAt, Status, ErrorMessage, MovieRows
		FROM Runs ORDER BY StartedAt DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
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

// GetRun loads a single run or returns ErrNotFound.
func (r *Reader) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	exists, err := r.tableExists(ctx, "Runs")
	if err != nil {
		return Run{}, err
	}
	if !exists {
		return Run{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT Id, StartedAt, FinishedAt, Status, ErrorMessage, MovieRows
		FROM Runs WHERE Id = ?`, id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var (
		id, started, status string
		finished, errMsg    sql.NullString
		movieRows           int
	)
	if err := s.Scan(&id, &started, &finished, &status, &errMsg, &movieRows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run := Run{Status: RunStatus(status), MovieRows: movieRows}
	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("parse run id %q: %w", id, err)
	}
	if run.StartedAt, err = time.Parse(runTimeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse run start %q: %w", started, err)
	}
	if finished.Valid {
		t, err := time.Parse(runTimeLayout, finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("parse run finish %q: %w", finished.String, err)
		}
		run.FinishedAt = &t
	}
	if errMsg.Valid {
		msg := errMsg.String
		run.ErrorMessage = &msg
	}
	return run, nil
}
