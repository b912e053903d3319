package model

import "time"

// JobStatus is the lifecycle state of a sync job. Every state other than
// running is terminal.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s != JobRunning
}

// Job is one ledger row: a single synchronization run.
type Job struct {
	ID                int64             `json:"id"`
	RunID             string            `json:"run_id"`
	JobType           string            `json:"job_type"`
	Status            JobStatus         `json:"status"`
	StartedAt         time.Time         `json:"started_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	DurationMs        int64             `json:"duration_ms"`
	Processed         int               `json:"processed"`
	Created           int               `json:"created"`
	Updated           int               `json:"updated"`
	Unchanged         int               `json:"unchanged"`
	Failed            int               `json:"failed"`
	Warnings          int               `json:"warnings"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	ErrorDetails      map[string]string `json:"error_details,omitempty"`
	SourceFingerprint string            `json:"source_fingerprint,omitempty"`
}

// JobStep is the per-entity detail row of a job.
type JobStep struct {
	Entity       Entity `json:"entity"`
	Status       string `json:"status"`
	Attempts     int    `json:"attempts"`
	Processed    int    `json:"processed"`
	Created      int    `json:"created"`
	Updated      int    `json:"updated"`
	Unchanged    int    `json:"unchanged"`
	Failed       int    `json:"failed"`
	Warnings     int    `json:"warnings"`
	ErrorMessage string `json:"error_message,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

// JobTotals are the counts written when a job finishes.
type JobTotals struct {
	LoadResult
	Warnings int
}
