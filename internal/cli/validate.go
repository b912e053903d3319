package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rowsync/internal/engine"
	"github.com/roach88/rowsync/internal/ui"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check configuration, database and sheet access",
		Long: `Load and validate the configuration, open the database and read each
configured sheet once. Nothing is written.

Exits 1 when a check fails and 2 when the configuration is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	a, err := loadApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	eng, err := a.newEngine(ctx, opts)
	if err != nil {
		return err
	}

	results, err := eng.Check(ctx)
	view := newCheckView(results)
	if err != nil {
		_ = a.formatter.Error(ErrCodeCheck, err.Error(), nil, view)
		return WrapExitError(ExitFailure, "validation failed", err)
	}
	return a.formatter.Success(view)
}

type checkView struct {
	Checks []checkLine `json:"checks"`
}

type checkLine struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newCheckView(results []engine.CheckResult) checkView {
	v := checkView{Checks: make([]checkLine, 0, len(results))}
	for _, r := range results {
		line := checkLine{Name: r.Name, OK: r.OK(), Detail: r.Detail}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		v.Checks = append(v.Checks, line)
	}
	return v
}

// RenderText implements TextRenderer.
func (v checkView) RenderText(w io.Writer, verbose bool) {
	for _, c := range v.Checks {
		mark := ui.OK.Render("ok  ")
		if !c.OK {
			mark = ui.Fail.Render("FAIL")
		}
		fmt.Fprintf(w, "%s %s %s\n", mark, c.Name, ui.Muted.Render(c.Detail))
		if c.Error != "" {
			fmt.Fprintf(w, "     %s\n", c.Error)
		}
	}
}
