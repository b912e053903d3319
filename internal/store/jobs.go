package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/rowsync/internal/model"
)

// ErrJobFinalized is returned when a terminal job is written to again.
var ErrJobFinalized = errors.New("sync job already finalized")

// JobResult is what a finished run writes to its ledger row.
type JobResult struct {
	Status            model.JobStatus
	Totals            model.JobTotals
	ErrorMessage      string
	ErrorDetails      map[string]string
	SourceFingerprint string
}

// StartJob records a new running job.
func (s *Store) StartJob(ctx context.Context, runID, jobType string) (model.Job, error) {
	started := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_jobs (run_id, job_type, status, started_at)
		VALUES (?, ?, ?, ?)
	`, runID, jobType, string(model.JobRunning), started.Format(timeLayout))
	if err != nil {
		return model.Job{}, fmt.Errorf("start job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Job{}, fmt.Errorf("start job: %w", err)
	}
	return model.Job{
		ID:        id,
		RunID:     runID,
		JobType:   jobType,
		Status:    model.JobRunning,
		StartedAt: started,
	}, nil
}

// FinishJob moves a running job to a terminal status. A job that is already
// terminal is never modified.
func (s *Store) FinishJob(ctx context.Context, id int64, r JobResult) error {
	if !r.Status.Terminal() {
		return fmt.Errorf("finish job: status %q is not terminal", r.Status)
	}
	details := r.ErrorDetails
	if details == nil {
		details = map[string]string{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("finish job: encode details: %w", err)
	}

	var startedAt string
	err = s.db.QueryRowContext(ctx, `SELECT started_at FROM sync_jobs WHERE id = ?`, id).Scan(&startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("finish job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	started, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return fmt.Errorf("finish job: parse started_at: %w", err)
	}
	completed := s.now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_jobs
		SET status = ?, completed_at = ?, duration_ms = ?,
		    processed = ?, created = ?, updated = ?, unchanged = ?, failed = ?, warnings = ?,
		    error_message = ?, error_details = ?, source_fingerprint = ?
		WHERE id = ? AND status = 'running'
	`,
		string(r.Status), completed.Format(timeLayout), completed.Sub(started).Milliseconds(),
		r.Totals.Processed, r.Totals.Created, r.Totals.Updated, r.Totals.Unchanged, r.Totals.Failed, r.Totals.Warnings,
		r.ErrorMessage, string(detailsJSON), r.SourceFingerprint,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish job %d: %w", id, ErrJobFinalized)
	}
	return nil
}

// RecordStep appends the detail row for one entity process. Steps can only
// be added while the job is running.
func (s *Store) RecordStep(ctx context.Context, jobID int64, seq int, step model.JobStep) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_job_steps
		(job_id, seq, entity, status, attempts, processed, created, updated, unchanged, failed, warnings, error_message, duration_ms)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM sync_jobs WHERE id = ? AND status = 'running')
	`,
		jobID, seq, string(step.Entity), step.Status, step.Attempts,
		step.Processed, step.Created, step.Updated, step.Unchanged, step.Failed, step.Warnings,
		step.ErrorMessage, step.DurationMs,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record step for job %d: %w", jobID, ErrJobFinalized)
	}
	return nil
}

const jobSelect = `
	SELECT id, run_id, job_type, status, started_at, completed_at, duration_ms,
	       processed, created, updated, unchanged, failed, warnings,
	       error_message, error_details, source_fingerprint
	FROM sync_jobs`

func scanJob(row scanner) (model.Job, error) {
	var j model.Job
	var status, startedAt, details string
	var completedAt sql.NullString
	err := row.Scan(&j.ID, &j.RunID, &j.JobType, &status, &startedAt, &completedAt, &j.DurationMs,
		&j.Processed, &j.Created, &j.Updated, &j.Unchanged, &j.Failed, &j.Warnings,
		&j.ErrorMessage, &details, &j.SourceFingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, ErrNotFound
	}
	if err != nil {
		return model.Job{}, err
	}
	j.Status = model.JobStatus(status)
	if j.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return model.Job{}, fmt.Errorf("parse started_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return model.Job{}, fmt.Errorf("parse completed_at: %w", err)
		}
		j.CompletedAt = &t
	}
	if details != "" && details != "{}" {
		if err := json.Unmarshal([]byte(details), &j.ErrorDetails); err != nil {
			return model.Job{}, fmt.Errorf("decode error_details: %w", err)
		}
	}
	return j, nil
}

// Job returns the job with the given run id, or ErrNotFound.
func (s *Store) Job(ctx context.Context, runID string) (model.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, jobSelect+` WHERE run_id = ?`, runID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return j, fmt.Errorf("read job: %w", err)
	}
	return j, err
}

// RecentJobs returns up to limit jobs, newest first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]model.Job, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, jobSelect+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("read jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("read jobs: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// JobSteps returns the per-entity rows of a job in execution order.
func (s *Store) JobSteps(ctx context.Context, jobID int64) ([]model.JobStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity, status, attempts, processed, created, updated, unchanged, failed, warnings, error_message, duration_ms
		FROM sync_job_steps WHERE job_id = ? ORDER BY seq ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("read job steps: %w", err)
	}
	defer rows.Close()

	var out []model.JobStep
	for rows.Next() {
		var st model.JobStep
		var entity string
		if err := rows.Scan(&entity, &st.Status, &st.Attempts, &st.Processed, &st.Created, &st.Updated,
			&st.Unchanged, &st.Failed, &st.Warnings, &st.ErrorMessage, &st.DurationMs); err != nil {
			return nil, fmt.Errorf("read job steps: %w", err)
		}
		st.Entity = model.Entity(entity)
		out = append(out, st)
	}
	return out, rows.Err()
}

// LastFingerprint returns the source fingerprint of the most recent
// completed job that recorded one, or "" if there is none.
func (s *Store) LastFingerprint(ctx context.Context) (string, error) {
	var fp string
	err := s.db.QueryRowContext(ctx, `
		SELECT source_fingerprint FROM sync_jobs
		WHERE status = 'completed' AND source_fingerprint <> ''
		ORDER BY id DESC LIMIT 1
	`).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read fingerprint: %w", err)
	}
	return fp, nil
}
