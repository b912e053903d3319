package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/sheet"
	"github.com/roach88/rowsync/internal/source"
	"github.com/roach88/rowsync/internal/store"
	"github.com/roach88/rowsync/internal/validate"
)

// Mode selects which processes a run executes.
type Mode string

const (
	// ModeFull runs every process and keeps going past failures.
	ModeFull Mode = "full"

	// ModeIncremental runs schedule, attendance and lineup, and is skipped
	// when the attendance sheet has not changed since the last completed run.
	ModeIncremental Mode = "incremental"

	// ModeSingle runs one named process and stops on failure.
	ModeSingle Mode = "single"

	// ModeTest runs every process as a dry run and stops on failure.
	ModeTest Mode = "test"
)

var incrementalOrder = []model.Entity{
	model.EntitySchedule,
	model.EntityAttendance,
	model.EntityLineup,
}

// Request describes one run.
type Request struct {
	Mode Mode

	// Entity is the process to run in ModeSingle.
	Entity model.Entity

	// DryRun extracts, transforms and validates without writing anything,
	// the ledger included. ModeTest is always a dry run.
	DryRun bool
}

func (r Request) dryRun() bool {
	return r.DryRun || r.Mode == ModeTest
}

func (r Request) continueOnFailure() bool {
	return r.Mode == ModeFull || r.Mode == ModeIncremental
}

// jobType is the ledger's name for the run.
func (r Request) jobType() string {
	if r.Mode == ModeSingle {
		return string(r.Entity)
	}
	return string(r.Mode)
}

func (r Request) entities() ([]model.Entity, error) {
	switch r.Mode {
	case ModeFull, ModeTest:
		return model.DependencyOrder, nil
	case ModeIncremental:
		return incrementalOrder, nil
	case ModeSingle:
		if _, ok := model.ParseEntity(string(r.Entity)); !ok {
			return nil, fmt.Errorf("unknown entity %q", r.Entity)
		}
		return []model.Entity{r.Entity}, nil
	}
	return nil, fmt.Errorf("unknown mode %q", r.Mode)
}

// Settings are the run parameters taken from configuration.
type Settings struct {
	// Sheet ranges read by the processes. Schedule and attendance share
	// the Attendance sheet.
	Roster     source.Request
	Equipment  source.Request
	Attendance source.Request

	BatchSize int
	Retry     pipeline.Policy

	// Header parses the session header block. A nil Now uses the engine
	// clock.
	Header             sheet.HeaderParser
	FirstSessionColumn int
	NameColumn         int

	// Aliases map abbreviated boat names in notes to equipment names.
	Aliases map[string]string
}

// Recorder receives the outcome of every process and run.
// Implemented by metrics.Recorder.
type Recorder interface {
	ObserveProcess(rep pipeline.Report)
	ObserveRun(sum Summary)
}

type nopRecorder struct{}

func (nopRecorder) ObserveProcess(pipeline.Report) {}
func (nopRecorder) ObserveRun(Summary)             {}

// Engine runs synchronizations against one store and one source.
type Engine struct {
	store    *store.Store
	src      source.Source
	settings Settings
	parser   sheet.HeaderParser
	check    *validate.Checker

	clock   Clock
	runIDs  RunIDGenerator
	sleeper pipeline.Sleeper
	logger  *slog.Logger
	metrics Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects a clock. Tests use a stepping clock so durations in
// summaries are deterministic.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRunIDs injects the run-id generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Engine) { e.runIDs = g }
}

// WithSleeper injects the sleeper used between extract attempts.
func WithSleeper(s pipeline.Sleeper) Option {
	return func(e *Engine) { e.sleeper = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the recorder notified after every process and run.
func WithMetrics(r Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// New creates an engine. Defaults: SystemClock, UUIDv7 run ids, real timers,
// slog.Default and no metrics.
func New(st *store.Store, src source.Source, settings Settings, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		src:      src,
		settings: settings,
		check:    validate.New(),
		clock:    SystemClock{},
		runIDs:   UUIDv7Generator{},
		sleeper:  pipeline.TimerSleeper,
		logger:   slog.Default(),
		metrics:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.settings.BatchSize < 1 {
		e.settings.BatchSize = store.DefaultBatchSize
	}
	e.parser = e.settings.Header
	if e.parser.Now == nil {
		e.parser.Now = e.clock.Now
	}
	return e
}

// Summary describes a finished run.
type Summary struct {
	RunID  string
	Mode   Mode
	Entity model.Entity
	DryRun bool
	Status model.JobStatus

	// Unchanged is set when an incremental run found the attendance sheet
	// identical to the last completed run and did nothing.
	Unchanged   bool
	Fingerprint string

	Reports  []pipeline.Report
	Totals   model.LoadResult
	Planned  int
	Warnings int

	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// Failed reports whether the run did not complete.
func (s Summary) Failed() bool {
	return s.Status != model.JobCompleted
}

// Run executes req.
//
// Full and incremental runs record failures in the ledger and return the
// summary with a nil error. Single-entity and test runs stop at the first
// failed process and return a *RunError. A cancelled run returns a
// *RunError in every mode.
func (e *Engine) Run(ctx context.Context, req Request) (Summary, error) {
	entities, err := req.entities()
	if err != nil {
		return Summary{}, err
	}

	dry := req.dryRun()
	sum := Summary{
		Mode:      req.Mode,
		Entity:    req.Entity,
		DryRun:    dry,
		Status:    model.JobRunning,
		StartedAt: e.clock.Now(),
	}

	var job model.Job
	if !dry {
		sum.RunID = e.runIDs.Generate()
		job, err = e.store.StartJob(ctx, sum.RunID, req.jobType())
		if err != nil {
			return sum, newLedgerError(sum.RunID, err)
		}
	}

	log := e.logger.With("mode", req.Mode)
	if sum.RunID != "" {
		log = log.With("run_id", sum.RunID)
	}
	log.Info("run started", "dry_run", dry, "source", e.src.Name())

	r := &runner{
		e:      e,
		scope:  newRunScope(e.store, dry),
		cache:  newGridCache(e.src),
		dryRun: dry,
		log:    log,
	}

	if req.Mode == ModeIncremental {
		fp, same := e.unchangedSinceLastRun(ctx, r)
		sum.Fingerprint = fp
		if same {
			log.Info("attendance sheet unchanged since last completed run; nothing to do", "fingerprint", fp)
			sum.Unchanged = true
			return e.finish(ctx, r, &sum, job, model.JobCompleted, nil)
		}
	}

	var failed []pipeline.Report
	for i, entity := range entities {
		if ctx.Err() != nil {
			break
		}
		rep := r.process(ctx, entity)
		sum.Reports = append(sum.Reports, rep)
		sum.Totals.Merge(rep.Load)
		sum.Planned += rep.Accepted
		sum.Warnings += len(rep.Warnings)
		e.metrics.ObserveProcess(rep)

		if !dry {
			if err := e.store.RecordStep(context.WithoutCancel(ctx), job.ID, i+1, stepOf(rep)); err != nil {
				log.Error("record step failed", "entity", entity, "error", err)
			}
		}

		if rep.Status == pipeline.StatusCancelled {
			break
		}
		if rep.Failed() {
			log.Error("process failed", "entity", entity, "error", rep.Err)
			failed = append(failed, rep)
			if !req.continueOnFailure() {
				break
			}
		}
	}

	if sum.Fingerprint == "" {
		if g, ok := r.cache.cached(e.settings.Attendance); ok {
			sum.Fingerprint = source.Fingerprint(g)
		}
	}

	switch {
	case ctx.Err() != nil:
		return e.finish(ctx, r, &sum, job, model.JobCancelled, nil)
	case len(failed) > 0:
		return e.finish(ctx, r, &sum, job, model.JobFailed, failed)
	}
	return e.finish(ctx, r, &sum, job, model.JobCompleted, nil)
}

// unchangedSinceLastRun fingerprints the attendance sheet and compares it
// with the last completed run. A failed read is not fatal: the schedule
// process will fetch again and report the failure itself.
func (e *Engine) unchangedSinceLastRun(ctx context.Context, r *runner) (string, bool) {
	out := pipeline.Retry(ctx, e.settings.Retry, e.sleeper, func(ctx context.Context) (source.Grid, error) {
		return r.cache.fetch(ctx, e.settings.Attendance)
	})
	if out.Err != nil {
		r.log.Warn("fingerprint read failed", "error", out.Err)
		return "", false
	}
	fp := source.Fingerprint(out.Value)
	last, err := e.store.LastFingerprint(ctx)
	if err != nil {
		r.log.Warn("read last fingerprint failed", "error", err)
		return fp, false
	}
	return fp, last != "" && last == fp
}

// finish closes the ledger row exactly once and builds the caller's error.
// The ledger write ignores cancellation so a cancelled run is still
// recorded as cancelled.
func (e *Engine) finish(ctx context.Context, r *runner, sum *Summary, job model.Job, status model.JobStatus, failed []pipeline.Report) (Summary, error) {
	sum.Status = status
	sum.Duration = e.clock.Now().Sub(sum.StartedAt)

	var runErr *RunError
	switch status {
	case model.JobCancelled:
		sum.Error = "run cancelled"
		runErr = &RunError{Code: ErrCodeCancelled, Message: sum.Error, RunID: sum.RunID, Err: context.Cause(ctx)}
	case model.JobFailed:
		first := failed[0]
		sum.Error = fmt.Sprintf("%d process(es) failed; first: %s", len(failed), errorText(first))
		if !(sum.Mode == ModeFull || sum.Mode == ModeIncremental) {
			runErr = &RunError{
				Code:    ErrCodeProcessFailed,
				Message: errorText(first),
				RunID:   sum.RunID,
				Entity:  first.Entity,
				Details: failureDetails(failed),
				Err:     first.Err,
			}
		}
	}

	if !sum.DryRun {
		res := store.JobResult{
			Status:       status,
			Totals:       model.JobTotals{LoadResult: sum.Totals, Warnings: sum.Warnings},
			ErrorMessage: sum.Error,
			ErrorDetails: failureDetails(failed),
		}
		if status == model.JobCompleted {
			res.SourceFingerprint = sum.Fingerprint
		}
		if err := e.store.FinishJob(context.WithoutCancel(ctx), job.ID, res); err != nil {
			return *sum, newLedgerError(sum.RunID, err)
		}
	}

	e.metrics.ObserveRun(*sum)
	r.log.Info("run finished",
		"status", status,
		"processed", sum.Totals.Processed,
		"created", sum.Totals.Created,
		"updated", sum.Totals.Updated,
		"unchanged", sum.Totals.Unchanged,
		"failed", sum.Totals.Failed,
		"removed", sum.Totals.Removed,
		"warnings", sum.Warnings,
		"duration", sum.Duration,
	)

	if runErr != nil {
		return *sum, runErr
	}
	return *sum, nil
}

func errorText(rep pipeline.Report) string {
	if rep.Err == nil {
		return rep.Entity + " failed"
	}
	return rep.Err.Error()
}

// failureDetails is the structured detail stored with a failed job: one
// entry per failed process plus the details its error carried.
func failureDetails(failed []pipeline.Report) map[string]string {
	if len(failed) == 0 {
		return nil
	}
	details := make(map[string]string)
	for _, rep := range failed {
		details[rep.Entity] = errorText(rep)
		var pe *pipeline.Error
		if errors.As(rep.Err, &pe) {
			details[rep.Entity+".kind"] = string(pe.Kind)
			for k, v := range pe.Details {
				details[rep.Entity+"."+k] = v
			}
		}
	}
	return details
}

func stepOf(rep pipeline.Report) model.JobStep {
	step := model.JobStep{
		Entity:     model.Entity(rep.Entity),
		Status:     string(rep.Status),
		Attempts:   rep.Attempts,
		Processed:  rep.Load.Processed,
		Created:    rep.Load.Created,
		Updated:    rep.Load.Updated,
		Unchanged:  rep.Load.Unchanged,
		Failed:     rep.Load.Failed,
		Warnings:   len(rep.Warnings),
		DurationMs: rep.Duration.Milliseconds(),
	}
	if rep.Err != nil {
		step.ErrorMessage = rep.Err.Error()
	}
	return step
}
