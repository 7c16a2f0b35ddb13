package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
)

// Request statuses stored in requests.status.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	DB *sql.DB
}

// RequestRecord is one row of the requests table.
type RequestRecord struct {
	RequestID string
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    string
	Query     string
	Prefs     *core.Prefs
	Error     *string
}

// ResultRecord is one row of the results table.
type ResultRecord struct {
	RequestID string
	CreatedAt time.Time
	Paths     core.Buckets
	Warnings  []string
	Error     *string
}

// NewWithDSN opens and pings a Postgres connection.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// CreateRunning inserts the request row with status running.
func (s *Store) CreateRunning(ctx context.Context, requestID string, in core.Input) error {
	var prefs []byte
	if in.Prefs != nil {
		b, err := json.Marshal(in.Prefs)
		if err != nil {
			return fmt.Errorf("marshal prefs: %w", err)
		}
		prefs = b
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO requests (request_id, status, query, prefs) VALUES ($1,$2,$3,$4)`,
		requestID, StatusRunning, in.Query, prefs)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *Store) MarkCompleted(ctx context.Context, requestID string) error {
	return s.setStatus(ctx, requestID, StatusCompleted, nil)
}

func (s *Store) MarkFailed(ctx context.Context, requestID, errMsg string) error {
	return s.setStatus(ctx, requestID, StatusFailed, &errMsg)
}

func (s *Store) setStatus(ctx context.Context, requestID, status string, errMsg *string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE requests SET status=$2, error=$3, updated_at=NOW() WHERE request_id=$1`,
		requestID, status, errMsg)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertRun appends one audit record to agent_runs.
func (s *Store) InsertRun(ctx context.Context, rec core.AuditRecord) error {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("marshal output summary: %w", err)
	}
	warnings := rec.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO agent_runs (request_id, agent_name, started_at, ended_at, output_summary, warnings, error)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.RequestID, string(rec.AgentName), rec.StartedAt, rec.EndedAt, summary, pq.Array(warnings), rec.Error)
	if err != nil {
		return fmt.Errorf("insert agent run: %w", err)
	}
	return nil
}

// RecordRun lets the store act as the orchestrator's audit sink.
func (s *Store) RecordRun(ctx context.Context, rec core.AuditRecord) error {
	return s.InsertRun(ctx, rec)
}

// UpsertResult writes the final buckets and warnings for a request.
func (s *Store) UpsertResult(ctx context.Context, requestID string, paths core.Buckets, warnings []string, errText *string) error {
	body, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("marshal paths: %w", err)
	}
	if warnings == nil {
		warnings = []string{}
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO results (request_id, paths, warnings, error)
VALUES ($1,$2,$3,$4)
ON CONFLICT (request_id) DO UPDATE SET
  paths = EXCLUDED.paths,
  warnings = EXCLUDED.warnings,
  error = EXCLUDED.error`,
		requestID, body, pq.Array(warnings), errText)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (RequestRecord, error) {
	var (
		rec   RequestRecord
		prefs []byte
	)
	err := s.DB.QueryRowContext(ctx, `SELECT request_id, created_at, updated_at, status, query, prefs, error FROM requests WHERE request_id=$1`, requestID).
		Scan(&rec.RequestID, &rec.CreatedAt, &rec.UpdatedAt, &rec.Status, &rec.Query, &prefs, &rec.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return RequestRecord{}, ErrNotFound
	}
	if err != nil {
		return RequestRecord{}, err
	}
	if len(prefs) > 0 {
		var p core.Prefs
		if err := json.Unmarshal(prefs, &p); err != nil {
			return RequestRecord{}, fmt.Errorf("decode prefs: %w", err)
		}
		rec.Prefs = &p
	}
	return rec, nil
}

func (s *Store) GetResult(ctx context.Context, requestID string) (ResultRecord, error) {
	var (
		rec      ResultRecord
		paths    []byte
		warnings pq.StringArray
	)
	err := s.DB.QueryRowContext(ctx, `SELECT request_id, created_at, paths, warnings, error FROM results WHERE request_id=$1`, requestID).
		Scan(&rec.RequestID, &rec.CreatedAt, &paths, &warnings, &rec.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return ResultRecord{}, ErrNotFound
	}
	if err != nil {
		return ResultRecord{}, err
	}
	rec.Paths = core.EmptyBuckets()
	if len(paths) > 0 {
		if err := json.Unmarshal(paths, &rec.Paths); err != nil {
			return ResultRecord{}, fmt.Errorf("decode paths: %w", err)
		}
	}
	rec.Warnings = []string(warnings)
	if rec.Warnings == nil {
		rec.Warnings = []string{}
	}
	return rec, nil
}

// ListRuns returns the audit records of a request in execution order.
func (s *Store) ListRuns(ctx context.Context, requestID string) ([]core.AuditRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT request_id, agent_name, started_at, ended_at, output_summary, warnings, error
FROM agent_runs
WHERE request_id=$1
ORDER BY started_at ASC, id ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []core.AuditRecord{}
	for rows.Next() {
		var (
			rec      core.AuditRecord
			agent    string
			summary  []byte
			warnings pq.StringArray
		)
		if err := rows.Scan(&rec.RequestID, &agent, &rec.StartedAt, &rec.EndedAt, &summary, &warnings, &rec.Error); err != nil {
			return nil, err
		}
		rec.AgentName = core.Stage(agent)
		if len(summary) > 0 {
			if err := json.Unmarshal(summary, &rec.Summary); err != nil {
				return nil, fmt.Errorf("decode output summary: %w", err)
			}
		}
		rec.Warnings = []string(warnings)
		if rec.Warnings == nil {
			rec.Warnings = []string{}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
