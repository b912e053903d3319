package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/source"
	"github.com/roach88/rowsync/internal/transform"
	"github.com/roach88/rowsync/internal/validate"
)

// runner holds what the processes of one run share.
type runner struct {
	e      *Engine
	scope  *runScope
	cache  *gridCache
	dryRun bool
	log    *slog.Logger
}

func (r *runner) options() pipeline.Options {
	return pipeline.Options{
		Retry:   r.e.settings.Retry,
		Sleeper: r.e.sleeper,
		Logger:  r.log,
		DryRun:  r.dryRun,
		Now:     r.e.clock.Now,
	}
}

// storeOptions is options for processes whose extract reads the store.
// Retries are for the source; a failed store read is not retried.
func (r *runner) storeOptions() pipeline.Options {
	opts := r.options()
	opts.Retry = pipeline.Policy{MaxAttempts: 1}
	return opts
}

func (r *runner) extract(req source.Request) func(context.Context) (source.Grid, error) {
	return func(ctx context.Context) (source.Grid, error) {
		return r.cache.fetch(ctx, req)
	}
}

func (r *runner) batchSize() int {
	return r.e.settings.BatchSize
}

func (r *runner) checker() *validate.Checker {
	return r.e.check
}

// process runs the pipeline for one entity.
func (r *runner) process(ctx context.Context, entity model.Entity) pipeline.Report {
	switch entity {
	case model.EntityRoster:
		return r.roster(ctx)
	case model.EntityEquipment:
		return r.equipment(ctx)
	case model.EntitySchedule:
		return r.schedule(ctx)
	case model.EntityAttendance:
		return r.attendance(ctx)
	case model.EntityLineup:
		return r.lineup(ctx)
	}
	return pipeline.Report{
		Entity: string(entity),
		Status: pipeline.StatusFailed,
		Err:    fmt.Errorf("unknown entity %q", entity),
	}
}

// dataRows counts the rows that were not blank.
func dataRows[T any](rows pipeline.Rows[T]) int {
	return len(rows.Values) + rows.Rejected
}

func (r *runner) roster(ctx context.Context) pipeline.Report {
	var rows int
	return pipeline.Run(ctx, pipeline.Stages[source.Grid, model.Member]{
		Entity:  string(model.EntityRoster),
		Extract: r.extract(r.e.settings.Roster),
		Transform: func(ctx context.Context, g source.Grid) (pipeline.Rows[model.Member], error) {
			out, err := transform.Roster(g)
			rows = dataRows(out)
			return out, err
		},
		Validate: func(ctx context.Context, members []model.Member) ([]model.Member, pipeline.Findings) {
			return members, r.checker().Members(members, rows)
		},
		Load: func(ctx context.Context, members []model.Member) (model.LoadResult, error) {
			return r.e.store.LoadMembers(ctx, members, r.batchSize())
		},
		Accepted: r.scope.planMembers,
	}, r.options())
}

func (r *runner) equipment(ctx context.Context) pipeline.Report {
	var rows int
	return pipeline.Run(ctx, pipeline.Stages[source.Grid, model.Equipment]{
		Entity:  string(model.EntityEquipment),
		Extract: r.extract(r.e.settings.Equipment),
		Transform: func(ctx context.Context, g source.Grid) (pipeline.Rows[model.Equipment], error) {
			out, err := transform.Equipment(g)
			rows = dataRows(out)
			return out, err
		},
		Validate: func(ctx context.Context, units []model.Equipment) ([]model.Equipment, pipeline.Findings) {
			return units, r.checker().Equipment(units, rows)
		},
		Load: func(ctx context.Context, units []model.Equipment) (model.LoadResult, error) {
			return r.e.store.LoadEquipment(ctx, units, r.batchSize())
		},
		Accepted: r.scope.planEquipment,
	}, r.options())
}

func (r *runner) schedule(ctx context.Context) pipeline.Report {
	return pipeline.Run(ctx, pipeline.Stages[source.Grid, model.Session]{
		Entity:  string(model.EntitySchedule),
		Extract: r.extract(r.e.settings.Attendance),
		Transform: func(ctx context.Context, g source.Grid) (pipeline.Rows[model.Session], error) {
			return transform.Schedule(r.e.parser, g, r.e.settings.FirstSessionColumn), nil
		},
		Validate: func(ctx context.Context, sessions []model.Session) ([]model.Session, pipeline.Findings) {
			return sessions, r.checker().Sessions(sessions)
		},
		Load: func(ctx context.Context, sessions []model.Session) (model.LoadResult, error) {
			return r.e.store.LoadSessions(ctx, sessions, r.batchSize())
		},
		Accepted: r.scope.planSessions,
	}, r.options())
}

func (r *runner) attendance(ctx context.Context) pipeline.Report {
	tr := transform.Attendance{
		Parser:      r.e.parser,
		FirstColumn: r.e.settings.FirstSessionColumn,
		NameColumn:  r.e.settings.NameColumn,
		Activity:    r.scope,
		Logger:      r.log,
	}
	return pipeline.Run(ctx, pipeline.Stages[source.Grid, model.Attendance]{
		Entity:    string(model.EntityAttendance),
		Extract:   r.extract(r.e.settings.Attendance),
		Transform: tr.Transform,
		Validate: func(ctx context.Context, records []model.Attendance) ([]model.Attendance, pipeline.Findings) {
			kept, findings, err := r.checker().Attendance(ctx, records, r.scope)
			if err != nil {
				findings.Errorf("%v", err)
			}
			return kept, findings
		},
		Load: func(ctx context.Context, records []model.Attendance) (model.LoadResult, error) {
			return r.e.store.LoadAttendance(ctx, records, r.batchSize())
		},
		Accepted: r.scope.planAttendance,
	}, r.options())
}

// lineup reads its input from the store (or the dry-run plan) rather than
// the sheet. Fallback units for generic classes are written first, and
// their outcomes count toward the lineup step.
func (r *runner) lineup(ctx context.Context) pipeline.Report {
	builder := transform.LineupBuilder{Boats: transform.BoatParser{Aliases: r.e.settings.Aliases}}
	var seeds []model.Equipment
	return pipeline.Run(ctx, pipeline.Stages[transform.LineupSource, model.Lineup]{
		Entity:  string(model.EntityLineup),
		Extract: r.scope.lineupSource,
		Transform: func(ctx context.Context, src transform.LineupSource) (pipeline.Rows[model.Lineup], error) {
			batch := builder.Build(src)
			seeds = batch.Seeds
			for _, u := range seeds {
				r.log.Info("seeding generic equipment unit", "entity", model.EntityLineup, "unit", u.Name, "class", u.Class)
			}
			return batch.Rows, nil
		},
		Validate: func(ctx context.Context, lineups []model.Lineup) ([]model.Lineup, pipeline.Findings) {
			return lineups, r.checker().Lineups(lineups)
		},
		Load: func(ctx context.Context, lineups []model.Lineup) (model.LoadResult, error) {
			var res model.LoadResult
			if len(seeds) > 0 {
				seeded, err := r.e.store.LoadEquipment(ctx, seeds, r.batchSize())
				res.Merge(seeded)
				if err != nil {
					return res, fmt.Errorf("seed equipment: %w", err)
				}
			}
			loaded, err := r.e.store.LoadLineups(ctx, lineups, r.batchSize())
			res.Merge(loaded)
			return res, err
		},
	}, r.storeOptions())
}
