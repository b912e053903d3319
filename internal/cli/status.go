package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/ui"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Limit int
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent runs from the ledger",
		Long: `List the most recent sync runs, newest first.

With --verbose each run is followed by its per-entity steps.

Example:
  rowsync status --limit 5
  rowsync status --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "number of runs to show")
	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	if opts.Limit < 1 {
		return NewExitError(ExitCommandError, "--limit must be at least 1")
	}

	a, err := loadApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	jobs, err := a.store.RecentJobs(ctx, opts.Limit)
	if err != nil {
		_ = a.formatter.Error(ErrCodeStore, err.Error(), nil, nil)
		return WrapExitError(ExitCommandError, "failed to read ledger", err)
	}

	view := statusView{Jobs: make([]jobView, 0, len(jobs))}
	for _, job := range jobs {
		jv := jobView{Job: job}
		if opts.Verbose || opts.Format == "json" {
			steps, err := a.store.JobSteps(ctx, job.ID)
			if err != nil {
				_ = a.formatter.Error(ErrCodeStore, err.Error(), nil, nil)
				return WrapExitError(ExitCommandError, "failed to read ledger", err)
			}
			jv.Steps = steps
		}
		view.Jobs = append(view.Jobs, jv)
	}
	return a.formatter.Success(view)
}

type statusView struct {
	Jobs []jobView `json:"jobs"`
}

type jobView struct {
	model.Job
	Steps []model.JobStep `json:"steps,omitempty"`
}

// RenderText implements TextRenderer.
func (v statusView) RenderText(w io.Writer, verbose bool) {
	if len(v.Jobs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}

	rows := [][]string{{"RUN", "TYPE", "STATUS", "STARTED", "DURATION", "CREATED", "UPDATED", "UNCHANGED", "FAILED", "WARNINGS"}}
	for _, j := range v.Jobs {
		rows = append(rows, []string{
			j.RunID,
			j.JobType,
			ui.Status(string(j.Status)),
			j.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%dms", j.DurationMs),
			strconv.Itoa(j.Created),
			strconv.Itoa(j.Updated),
			strconv.Itoa(j.Unchanged),
			strconv.Itoa(j.Failed),
			strconv.Itoa(j.Warnings),
		})
	}
	fmt.Fprintln(w, ui.Table(rows))

	for _, j := range v.Jobs {
		if j.ErrorMessage != "" {
			fmt.Fprintf(w, "%s %s: %s\n", ui.Fail.Render("error"), j.RunID, j.ErrorMessage)
		}
		if !verbose || len(j.Steps) == 0 {
			continue
		}
		fmt.Fprintln(w, ui.Title.Render("run "+j.RunID))
		steps := [][]string{{"  ENTITY", "STATUS", "ATTEMPTS", "PROCESSED", "CREATED", "UPDATED", "UNCHANGED", "FAILED"}}
		for _, s := range j.Steps {
			steps = append(steps, []string{
				"  " + string(s.Entity),
				ui.Status(s.Status),
				strconv.Itoa(s.Attempts),
				strconv.Itoa(s.Processed),
				strconv.Itoa(s.Created),
				strconv.Itoa(s.Updated),
				strconv.Itoa(s.Unchanged),
				strconv.Itoa(s.Failed),
			})
		}
		fmt.Fprintln(w, ui.Table(steps))
	}
}
