package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobKind names the server-side operation a job tracks.
type JobKind string

const (
	JobProjectCreate JobKind = "project_create"
	JobDetection     JobKind = "detection"
	JobComparison    JobKind = "comparison"
	JobTraining      JobKind = "training"
)

// JobStatus is the locally recorded state of a job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the job needs no further polling.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCancelled
}

// ErrJobNotFound is returned when a job id is unknown.
var ErrJobNotFound = errors.New("job not found")

// Job is an asynchronous server task the console is watching.
type Job struct {
	ID          string // server task id
	Kind        JobKind
	EntityID    int64 // project, comparison or model id
	Name        string
	Status      JobStatus
	Error       string
	Target      string // navigation target once finished
	Attempts    int    // status checks made so far
	CreatedAt   int64  // unix ms
	UpdatedAt   int64  // unix ms
	CompletedAt int64  // unix ms, 0 = not completed
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	Status JobStatus
	Kind   JobKind
	Active bool // only non-terminal jobs
	Limit  int
}

// SaveJob inserts or replaces a job.
func (s *Store) SaveJob(ctx context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if j.CreatedAt == 0 {
		j.CreatedAt = now
	}
	if j.UpdatedAt == 0 {
		j.UpdatedAt = now
	}
	if j.Status == "" {
		j.Status = JobPending
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO jobs (
		id, kind, entity_id, name, status, error, target, attempts,
		created_at, updated_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.Kind), j.EntityID, j.Name, string(j.Status),
		sql.NullString{String: j.Error, Valid: j.Error != ""},
		sql.NullString{String: j.Target, Valid: j.Target != ""},
		j.Attempts, j.CreatedAt, j.UpdatedAt,
		sql.NullInt64{Int64: j.CompletedAt, Valid: j.CompletedAt != 0},
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob returns a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
	SELECT id, kind, entity_id, name, status, error, target, attempts,
	       created_at, updated_at, completed_at
	FROM jobs WHERE id = ?`, id)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// RecordAttempt bumps the attempt counter of a job.
func (s *Store) RecordAttempt(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET attempts = attempts + 1, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// FinishJob moves a job to a terminal status.
func (s *Store) FinishJob(ctx context.Context, id string, status JobStatus, target, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
	UPDATE jobs SET status = ?, target = ?, error = ?, updated_at = ?, completed_at = ?
	WHERE id = ?`,
		string(status),
		sql.NullString{String: target, Valid: target != ""},
		sql.NullString{String: errMsg, Valid: errMsg != ""},
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ListJobs returns jobs newest first.
func (s *Store) ListJobs(ctx context.Context, f JobFilter) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, kind, entity_id, name, status, error, target, attempts,
	       created_at, updated_at, completed_at
	FROM jobs`
	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Active {
		where = append(where, "status = ?")
		args = append(args, string(JobPending))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*Job, error) {
	j := &Job{}
	var kind, status string
	var errMsg, target sql.NullString
	var completedAt sql.NullInt64

	err := r.Scan(&j.ID, &kind, &j.EntityID, &j.Name, &status, &errMsg, &target,
		&j.Attempts, &j.CreatedAt, &j.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	j.Kind = JobKind(kind)
	j.Status = JobStatus(status)
	j.Error = errMsg.String
	j.Target = target.String
	j.CompletedAt = completedAt.Int64
	return j, nil
}
