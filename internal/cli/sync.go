package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rowsync/internal/engine"
	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/ui"
)

// SyncOptions holds flags for the sync commands.
type SyncOptions struct {
	*RootOptions
	DryRun bool
}

// NewFullCommand creates the full command.
func NewFullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "full",
		Short: "Sync every entity in dependency order",
		Long: `Run roster, equipment, schedule, attendance and lineup in that order.

A failed process is recorded and the run moves on to the next one. The run
is marked failed in the ledger but the command still exits 0 unless it was
interrupted.

Example:
  rowsync full --config club.yaml
  rowsync full --dry-run --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd, engine.Request{Mode: engine.ModeFull})
		},
	}
	addDryRunFlag(cmd, opts)
	return cmd
}

// NewIncrementalCommand creates the incremental command.
func NewIncrementalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "incremental",
		Short: "Sync schedule, attendance and lineups when the sheet changed",
		Long: `Run schedule, attendance and lineup.

The run is skipped when the attendance sheet is identical to the one the
last completed run read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd, engine.Request{Mode: engine.ModeIncremental})
		},
	}
	addDryRunFlag(cmd, opts)
	return cmd
}

// NewEntityCommands creates one command per entity process.
func NewEntityCommands(rootOpts *RootOptions) []*cobra.Command {
	short := map[model.Entity]string{
		model.EntityRoster:     "Sync the member roster",
		model.EntityEquipment:  "Sync the equipment list",
		model.EntitySchedule:   "Sync sessions from the attendance header",
		model.EntityAttendance: "Sync attendance answers",
		model.EntityLineup:     "Rebuild boat lineups from assignments",
	}

	cmds := make([]*cobra.Command, 0, len(model.DependencyOrder))
	for _, entity := range model.DependencyOrder {
		opts := &SyncOptions{RootOptions: rootOpts}
		cmd := &cobra.Command{
			Use:   string(entity),
			Short: short[entity],
			Long: fmt.Sprintf(`%s.

Runs only the %s process. It reads what earlier processes stored, so run
them first on an empty database. Exits 1 when the process fails.`, short[entity], entity),
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSync(opts, cmd, engine.Request{Mode: engine.ModeSingle, Entity: entity})
			},
		}
		addDryRunFlag(cmd, opts)
		cmds = append(cmds, cmd)
	}
	return cmds
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}
	return &cobra.Command{
		Use:   "test",
		Short: "Dry-run every entity and report what would be written",
		Long: `Run every process without writing to the database or the ledger.

Later processes see what earlier ones planned, so a test run on an empty
database reports the same counts a full run would write. Exits 1 at the
first failed process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd, engine.Request{Mode: engine.ModeTest, DryRun: true})
		},
	}
}

func addDryRunFlag(cmd *cobra.Command, opts *SyncOptions) {
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "extract, transform and validate without writing")
}

func runSync(opts *SyncOptions, cmd *cobra.Command, req engine.Request) error {
	a, err := loadApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	eng, err := a.newEngine(ctx, opts.RootOptions)
	if err != nil {
		return err
	}

	req.DryRun = req.DryRun || opts.DryRun || a.cfg.Sync.DryRun
	a.formatter.VerboseLog("starting %s run (dry run: %t)", req.Mode, req.DryRun)

	sum, err := eng.Run(ctx, req)
	a.writeMetrics()

	view := newRunView(sum)
	if err != nil {
		var runErr *engine.RunError
		if !errors.As(err, &runErr) {
			_ = a.formatter.Error(ErrCodeGeneric, err.Error(), nil, nil)
			return WrapExitError(ExitCommandError, "sync could not start", err)
		}
		code, exit := ErrCodeSync, ExitFailure
		switch runErr.Code {
		case engine.ErrCodeCancelled:
			code = ErrCodeCancelled
		case engine.ErrCodeLedger:
			code, exit = ErrCodeStore, ExitCommandError
		}
		_ = a.formatter.Error(code, runErr.Error(), runErr.Details, view)
		return WrapExitError(exit, "sync failed", err)
	}
	return a.formatter.Success(view)
}

// signalContext cancels on SIGINT or SIGTERM. A cancelled run finishes its
// ledger row before the command returns.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runView is the printable form of an engine summary.
type runView struct {
	RunID       string           `json:"run_id,omitempty"`
	Mode        string           `json:"mode"`
	Entity      string           `json:"entity,omitempty"`
	DryRun      bool             `json:"dry_run"`
	Status      string           `json:"status"`
	Unchanged   bool             `json:"unchanged,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Processes   []processView    `json:"processes"`
	Totals      model.LoadResult `json:"totals"`
	Planned     int              `json:"planned"`
	Warnings    int              `json:"warnings"`
	DurationMs  int64            `json:"duration_ms"`
	Error       string           `json:"error,omitempty"`
}

type processView struct {
	Entity     string   `json:"entity"`
	Status     string   `json:"status"`
	Attempts   int      `json:"attempts"`
	Accepted   int      `json:"accepted"`
	Skipped    int      `json:"skipped"`
	Rejected   int      `json:"rejected"`
	Created    int      `json:"created"`
	Updated    int      `json:"updated"`
	Unchanged  int      `json:"unchanged"`
	Failed     int      `json:"failed"`
	Warnings   []string `json:"warnings,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

func newRunView(sum engine.Summary) runView {
	v := runView{
		RunID:       sum.RunID,
		Mode:        string(sum.Mode),
		Entity:      string(sum.Entity),
		DryRun:      sum.DryRun,
		Status:      string(sum.Status),
		Unchanged:   sum.Unchanged,
		Fingerprint: sum.Fingerprint,
		Processes:   make([]processView, 0, len(sum.Reports)),
		Totals:      sum.Totals,
		Planned:     sum.Planned,
		Warnings:    sum.Warnings,
		DurationMs:  sum.Duration.Milliseconds(),
		Error:       sum.Error,
	}
	for _, rep := range sum.Reports {
		v.Processes = append(v.Processes, newProcessView(rep))
	}
	return v
}

func newProcessView(rep pipeline.Report) processView {
	p := processView{
		Entity:     rep.Entity,
		Status:     string(rep.Status),
		Attempts:   rep.Attempts,
		Accepted:   rep.Accepted,
		Skipped:    rep.Skipped,
		Rejected:   rep.Rejected,
		Created:    rep.Load.Created,
		Updated:    rep.Load.Updated,
		Unchanged:  rep.Load.Unchanged,
		Failed:     rep.Load.Failed,
		Errors:     rep.Errors,
		DurationMs: rep.Duration.Milliseconds(),
	}
	for _, w := range rep.Warnings {
		p.Warnings = append(p.Warnings, w.String())
	}
	if len(p.Errors) == 0 && rep.Err != nil {
		p.Errors = []string{rep.Err.Error()}
	}
	return p
}

// RenderText implements TextRenderer.
func (v runView) RenderText(w io.Writer, verbose bool) {
	title := v.Mode
	if v.Entity != "" {
		title = v.Entity
	}
	if v.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(w, "%s %s\n", ui.Title.Render(title), ui.Status(v.Status))
	if v.RunID != "" {
		fmt.Fprintln(w, ui.Muted.Render("run "+v.RunID))
	}
	if v.Unchanged {
		fmt.Fprintln(w, "attendance sheet unchanged since the last completed run; nothing to do")
		return
	}

	rows := [][]string{{"ENTITY", "STATUS", "ACCEPTED", "CREATED", "UPDATED", "UNCHANGED", "FAILED", "WARNINGS"}}
	for _, p := range v.Processes {
		rows = append(rows, []string{
			p.Entity,
			ui.Status(p.Status),
			strconv.Itoa(p.Accepted),
			strconv.Itoa(p.Created),
			strconv.Itoa(p.Updated),
			strconv.Itoa(p.Unchanged),
			strconv.Itoa(p.Failed),
			strconv.Itoa(len(p.Warnings)),
		})
	}
	fmt.Fprintln(w, ui.Table(rows))

	if v.DryRun {
		fmt.Fprintf(w, "%d record(s) would be written\n", v.Planned)
	} else {
		fmt.Fprintf(w, "%d created, %d updated, %d unchanged, %d failed\n",
			v.Totals.Created, v.Totals.Updated, v.Totals.Unchanged, v.Totals.Failed)
	}

	for _, p := range v.Processes {
		for _, e := range p.Errors {
			fmt.Fprintf(w, "%s %s: %s\n", ui.Fail.Render("error"), p.Entity, e)
		}
		if verbose {
			for _, warning := range p.Warnings {
				fmt.Fprintf(w, "%s %s\n", ui.Warn.Render("warning"), warning)
			}
		}
	}
	if !verbose && v.Warnings > 0 {
		fmt.Fprintln(w, ui.Muted.Render(fmt.Sprintf("%d warning(s); rerun with --verbose to list them", v.Warnings)))
	}
}
