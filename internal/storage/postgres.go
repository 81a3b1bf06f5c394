// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"message-sender/internal/model"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id UUID PRIMARY KEY,
	operator TEXT NOT NULL DEFAULT '',
	target TEXT NOT NULL,
	message_count INT NOT NULL,
	workers INT NOT NULL,
	sent INT NOT NULL DEFAULT 0,
	received INT NOT NULL DEFAULT 0,
	failed_workers INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	elapsed_us BIGINT NOT NULL DEFAULT 0,
	latency JSONB
);
CREATE TABLE IF NOT EXISTS results (
	run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	record_id INT NOT NULL,
	worker_id INT NOT NULL,
	sent_at TIMESTAMPTZ NOT NULL,
	received_at TIMESTAMPTZ NOT NULL,
	latency_us BIGINT NOT NULL,
	reply_size INT NOT NULL,
	PRIMARY KEY (run_id, record_id)
);
ALTER TABLE runs ADD COLUMN IF NOT EXISTS operator TEXT NOT NULL DEFAULT '';`

type Storage struct {
	DB *sql.DB
}

func NewStorage(dsn string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db}, nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// EnsureSchema creates the runs and results tables if they do not exist
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Storage) InsertRun(ctx context.Context, r *model.Run) error {
	latency, err := json.Marshal(r.Latency)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO runs (id, operator, target, message_count, workers, status, started_at, latency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.Operator, r.Target, r.MessageCount, r.Workers, string(r.Status), r.StartedAt, latency)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// UpdateRun stores the outcome of a finished run
func (s *Storage) UpdateRun(ctx context.Context, r *model.Run) error {
	latency, err := json.Marshal(r.Latency)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE runs
		SET workers = $2, sent = $3, received = $4, failed_workers = $5, status = $6,
		    error = $7, finished_at = $8, elapsed_us = $9, latency = $10
		WHERE id = $1
	`, r.ID, r.Workers, r.Sent, r.Received, r.FailedWorkers, string(r.Status),
		r.Error, r.FinishedAt, r.Elapsed.Microseconds(), latency)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

// InsertResults bulk loads the round trips of a run with COPY
func (s *Storage) InsertResults(ctx context.Context, runID uuid.UUID, results []model.Result) error {
	if len(results) == 0 {
		return nil
	}

	txn, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn("results",
		"run_id", "record_id", "worker_id", "sent_at", "received_at", "latency_us", "reply_size"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, runID.String(), r.RecordID, r.WorkerID,
			r.SentAt, r.ReceivedAt, r.Latency.Microseconds(), r.ReplySize); err != nil {
			stmt.Close()
			return fmt.Errorf("copy result %d: %w", r.RecordID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}
	return txn.Commit()
}

const runColumns = `id, operator, target, message_count, workers, sent, received, failed_workers,
	status, error, started_at, finished_at, elapsed_us, latency`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.Run, error) {
	var (
		r         model.Run
		status    string
		finished  sql.NullTime
		elapsedUS int64
		latency   []byte
	)
	err := row.Scan(&r.ID, &r.Operator, &r.Target, &r.MessageCount, &r.Workers, &r.Sent, &r.Received,
		&r.FailedWorkers, &status, &r.Error, &r.StartedAt, &finished, &elapsedUS, &latency)
	if err != nil {
		return r, err
	}
	r.Status = model.RunStatus(status)
	r.FinishedAt = finished.Time
	r.Elapsed = time.Duration(elapsedUS) * time.Microsecond
	if len(latency) > 0 {
		if err := json.Unmarshal(latency, &r.Latency); err != nil {
			return r, fmt.Errorf("decode latency of run %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func (s *Storage) GetRun(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return &r, nil
}

// ListRunsPaginated returns runs newest first. Run ids are UUIDv7, so id
// order is start order and the last id of a page is the next cursor.
func (s *Storage) ListRunsPaginated(ctx context.Context, cursor string, limit int) ([]model.Run, string, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE ($1::uuid IS NULL OR id < $1::uuid)
		ORDER BY id DESC
		LIMIT $2
	`

	var arg any
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
		arg = cursor
	}

	rows, err := s.DB.QueryContext(ctx, query, arg, limit)
	if err != nil {
		return nil, "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan failed: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(runs) == limit {
		nextCursor = runs[len(runs)-1].ID.String()
	}
	return runs, nextCursor, nil
}

func (s *Storage) ListResults(ctx context.Context, runID uuid.UUID) ([]model.Result, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT record_id, worker_id, sent_at, received_at, latency_us, reply_size
		FROM results
		WHERE run_id = $1
		ORDER BY record_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var (
			r  model.Result
			us int64
		)
		if err := rows.Scan(&r.RecordID, &r.WorkerID, &r.SentAt, &r.ReceivedAt, &us, &r.ReplySize); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		r.Latency = time.Duration(us) * time.Microsecond
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Storage) DeleteRun(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM runs WHERE id = $1`, id)
	return err
}
