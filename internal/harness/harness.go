package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/roach88/rowsync/internal/engine"
	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/sheet"
	"github.com/roach88/rowsync/internal/source"
	"github.com/roach88/rowsync/internal/store"
	"github.com/roach88/rowsync/internal/testutil"
)

// Tables counted into Result.Counts after the last run.
var Tables = []string{"members", "equipment", "sessions", "attendance", "lineups", "sync_jobs", "sync_job_steps"}

// Settings are the engine settings every scenario runs with.
func Settings() engine.Settings {
	return engine.Settings{
		Roster:             source.Request{Sheet: "Roster"},
		Equipment:          source.Request{Sheet: "Equipment"},
		Attendance:         source.Request{Sheet: "Attendance"},
		BatchSize:          store.DefaultBatchSize,
		Retry:              pipeline.Policy{MaxAttempts: 3, InitialDelay: time.Second, Multiplier: 2},
		Header:             sheet.DefaultHeaderParser(nil),
		FirstSessionColumn: 1,
	}
}

// Harness holds the state shared by the runs of one scenario.
type Harness struct {
	store    *store.Store
	clock    *testutil.StepClock
	runIDs   *testutil.SequentialRunIDs
	logger   *slog.Logger
	workbook source.Workbook
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. An error is returned
// only when the scenario could not be executed at all; failed expectations
// and assertions are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	start, err := scenario.start()
	if err != nil {
		return nil, err
	}

	clock := testutil.NewStepClock(start, time.Second)
	st, err := store.Open(":memory:", store.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		clock:    clock,
		runIDs:   testutil.NewSequentialRunIDs("run"),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		workbook: source.Workbook{Sheets: make(map[string][][]any, len(scenario.Workbook.Sheets))},
	}
	maps.Copy(h.workbook.Sheets, scenario.Workbook.Sheets)

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Runs {
		if err := h.executeRun(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("runs[%d]: %w", i, err)
		}
	}

	for _, table := range Tables {
		n, err := st.Count(ctx, table)
		if err != nil {
			return nil, err
		}
		result.Counts[table] = n
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeRun applies the run's sheet edits, runs the engine and checks the
// expect clause.
func (h *Harness) executeRun(ctx context.Context, n int, step RunStep, result *Result) error {
	for name, rows := range step.Sheets {
		if rows == nil {
			delete(h.workbook.Sheets, name)
			continue
		}
		h.workbook.Sheets[name] = rows
	}

	src := source.NewFileSource("scenario", source.Workbook{Sheets: maps.Clone(h.workbook.Sheets)}, source.DefaultTokens)
	eng := engine.New(h.store, src, Settings(),
		engine.WithClock(h.clock),
		engine.WithRunIDs(h.runIDs),
		engine.WithSleeper(pipeline.SleeperFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })),
		engine.WithLogger(h.logger),
	)

	req := engine.Request{Mode: engine.Mode(step.Mode), Entity: model.Entity(step.Entity), DryRun: step.DryRun}
	sum, runErr := eng.Run(ctx, req)
	if runErr != nil && sum.Status == "" {
		// rejected before a run started
		return runErr
	}

	rec := RunRecord{
		RunID:     sum.RunID,
		Mode:      string(sum.Mode),
		Entity:    string(sum.Entity),
		DryRun:    sum.DryRun,
		Status:    string(sum.Status),
		Unchanged: sum.Unchanged,
		Planned:   sum.Planned,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	result.Runs = append(result.Runs, rec)

	for _, rep := range sum.Reports {
		result.Trace = append(result.Trace, TraceEvent{
			Run:       n,
			RunID:     sum.RunID,
			Entity:    rep.Entity,
			Status:    string(rep.Status),
			Attempts:  rep.Attempts,
			Accepted:  rep.Accepted,
			Created:   rep.Load.Created,
			Updated:   rep.Load.Updated,
			Unchanged: rep.Load.Unchanged,
			Failed:    rep.Load.Failed,
			Warnings:  len(rep.Warnings),
		})
	}

	if step.Expect != nil {
		for _, msg := range checkExpect(n, *step.Expect, rec, runErr) {
			result.AddError(msg)
		}
	}
	return nil
}

func checkExpect(n int, want ExpectClause, got RunRecord, runErr error) []string {
	var errs []string
	if got.Status != want.Status {
		errs = append(errs, fmt.Sprintf("run %d: status = %s, expected %s", n, got.Status, want.Status))
	}
	if want.Error && runErr == nil {
		errs = append(errs, fmt.Sprintf("run %d: expected an error", n))
	}
	if !want.Error && runErr != nil {
		errs = append(errs, fmt.Sprintf("run %d: unexpected error: %v", n, runErr))
	}
	if want.Unchanged != nil && got.Unchanged != *want.Unchanged {
		errs = append(errs, fmt.Sprintf("run %d: unchanged = %t, expected %t", n, got.Unchanged, *want.Unchanged))
	}
	if want.Planned != nil && got.Planned != *want.Planned {
		errs = append(errs, fmt.Sprintf("run %d: planned = %d, expected %d", n, got.Planned, *want.Planned))
	}
	return errs
}
