package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/rowsync/internal/model"
)

// Stages are the four plain functions that make up one entity process.
// R is the raw extracted payload, T the record type.
type Stages[R, T any] struct {
	Entity string

	Extract   func(ctx context.Context) (R, error)
	Transform func(ctx context.Context, raw R) (Rows[T], error)
	Validate  func(ctx context.Context, records []T) ([]T, Findings)
	Load      func(ctx context.Context, records []T) (model.LoadResult, error)

	// Accepted, if set, sees the validated batch before it is loaded.
	// It also runs on dry runs, so later processes can plan against it.
	Accepted func(records []T)
}

// Options configure a Run.
type Options struct {
	Retry   Policy
	Sleeper Sleeper
	Logger  *slog.Logger
	DryRun  bool
	Now     func() time.Time
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Status is the end state of one entity process.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Report summarizes one entity process.
type Report struct {
	Entity   string
	Status   Status
	DryRun   bool
	Attempts int
	Backoff  time.Duration

	// Accepted is the number of records that passed transform and
	// validation; it is the planned write count on dry runs.
	Accepted int
	Skipped  int
	Rejected int

	Load     model.LoadResult
	Warnings []Warning
	Errors   []string
	Err      error
	Duration time.Duration
}

// Failed reports whether the process did not complete.
func (r Report) Failed() bool {
	return r.Status != StatusCompleted
}

// Run drives extract, transform, validate and load strictly in order.
// Only extract is retried. A validation error stops the process before any
// write; single-record load failures are counted and do not stop it.
func Run[R, T any](ctx context.Context, s Stages[R, T], opts Options) Report {
	log := opts.logger().With("entity", s.Entity)
	start := opts.now()
	rep := Report{Entity: s.Entity, DryRun: opts.DryRun}
	finish := func(status Status, err error) Report {
		rep.Status = status
		rep.Err = err
		rep.Duration = opts.now().Sub(start)
		return rep
	}

	if err := ctx.Err(); err != nil {
		return finish(StatusCancelled, NewCancelledError(s.Entity, err))
	}

	log.Debug("extract")
	out := Retry(ctx, opts.Retry, opts.Sleeper, s.Extract)
	rep.Attempts = out.Count()
	rep.Backoff = out.TotalBackoff()
	for _, a := range out.Attempts {
		if a.Err != nil {
			log.Warn("extract attempt failed", "attempt", a.Number, "backoff", a.Backoff, "error", a.Err)
		}
	}
	if out.Err != nil {
		if ctx.Err() != nil {
			return finish(StatusCancelled, NewCancelledError(s.Entity, out.Err))
		}
		return finish(StatusFailed, NewExtractionError(s.Entity, rep.Attempts, out.Err))
	}

	log.Debug("transform")
	rows, err := s.Transform(ctx, out.Value)
	rep.Skipped = rows.Skipped
	rep.Rejected = rows.Rejected
	rep.Warnings = append(rep.Warnings, rows.Warnings...)
	if err != nil {
		var pe *Error
		if !errors.As(err, &pe) {
			err = NewValidationError(s.Entity, []string{err.Error()})
		}
		rep.Errors = append(rep.Errors, err.Error())
		return finish(StatusFailed, err)
	}

	records := rows.Values
	if s.Validate != nil {
		var findings Findings
		records, findings = s.Validate(ctx, records)
		rep.Warnings = append(rep.Warnings, findings.Warnings...)
		if !findings.OK() {
			rep.Errors = append(rep.Errors, findings.Errors...)
			for _, e := range findings.Errors {
				log.Error("validation error", "error", e)
			}
			return finish(StatusFailed, NewValidationError(s.Entity, findings.Errors))
		}
	}
	rep.Accepted = len(records)
	for _, w := range rep.Warnings {
		log.Warn("row warning", "row", w.Row, "column", w.Column, "message", w.Message)
	}

	if s.Accepted != nil {
		s.Accepted(records)
	}

	if opts.DryRun {
		log.Info("dry run, skipping load", "records", len(records))
		return finish(StatusCompleted, nil)
	}

	if err := ctx.Err(); err != nil {
		return finish(StatusCancelled, NewCancelledError(s.Entity, err))
	}

	log.Debug("load", "records", len(records))
	res, err := s.Load(ctx, records)
	rep.Load = res
	for _, f := range res.Failures {
		log.Warn("record failed", "index", f.Index, "key", f.Key, "error", f.Message)
	}
	if err != nil {
		if ctx.Err() != nil {
			return finish(StatusCancelled, NewCancelledError(s.Entity, err))
		}
		return finish(StatusFailed, NewLoadError(s.Entity, err))
	}

	log.Info("process complete",
		"processed", res.Processed,
		"created", res.Created,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"failed", res.Failed,
		"warnings", len(rep.Warnings),
	)
	return finish(StatusCompleted, nil)
}
