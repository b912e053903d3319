package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rowsync/internal/config"
	"github.com/roach88/rowsync/internal/engine"
	"github.com/roach88/rowsync/internal/logging"
	"github.com/roach88/rowsync/internal/metrics"
	"github.com/roach88/rowsync/internal/source"
	"github.com/roach88/rowsync/internal/store"
)

// app is everything a command needs, built from configuration. Commands
// receive it explicitly; nothing is read from globals.
type app struct {
	cfg       config.Config
	log       *slog.Logger
	logCloser io.Closer
	store     *store.Store
	metrics   *metrics.Recorder
	formatter *OutputFormatter
}

// loadApp reads configuration, sets up logging and opens the store.
// Failures are command errors (exit 2).
func loadApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(config.Options{File: opts.ConfigFile, Flags: opts.configFlags(cmd)})
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil, nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logTo := opts.LogTo
	if logTo == nil {
		logTo = cmd.ErrOrStderr()
	}
	log, closer, err := logging.New(logging.Config{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Stderr:     logTo,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil, nil)
		return nil, WrapExitError(ExitCommandError, "invalid log configuration", err)
	}

	var storeOpts []store.Option
	if opts.Clock != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.Clock.Now))
	}
	log.Debug("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path, storeOpts...)
	if err != nil {
		closer.Close()
		_ = formatter.Error(ErrCodeStore, err.Error(), nil, nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		logCloser: closer,
		store:     st,
		metrics:   metrics.New(),
		formatter: formatter,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("error closing database", "error", err)
	}
	_ = a.logCloser.Close()
}

// openSource builds the configured source behind the rate limiter.
func (a *app) openSource(ctx context.Context, override source.Source) (source.Source, error) {
	src := override
	if src == nil {
		tokens := a.cfg.SourceTokens()
		var err error
		switch a.cfg.Source.Kind {
		case config.SourceFile:
			src, err = source.OpenFile(a.cfg.Source.File, tokens)
		case config.SourceSheets:
			src, err = source.NewSheetsSource(ctx, a.cfg.Source.SpreadsheetID, a.cfg.Source.CredentialsFile, tokens)
		default:
			err = fmt.Errorf("unknown source kind %q", a.cfg.Source.Kind)
		}
		if err != nil {
			return nil, err
		}
	}
	return source.NewRateLimited(src, a.cfg.Source.RatePerSecond, a.cfg.Source.Burst), nil
}

// newEngine builds the engine over the configured source.
func (a *app) newEngine(ctx context.Context, opts *RootOptions) (*engine.Engine, error) {
	src, err := a.openSource(ctx, opts.Source)
	if err != nil {
		_ = a.formatter.Error(ErrCodeSource, err.Error(), nil, nil)
		return nil, WrapExitError(ExitCommandError, "failed to open source", err)
	}

	settings := engine.Settings{
		Roster:             source.ParseRequest(a.cfg.Sheets.Roster),
		Equipment:          source.ParseRequest(a.cfg.Sheets.Equipment),
		Attendance:         source.ParseRequest(a.cfg.Sheets.Attendance),
		BatchSize:          a.cfg.Sync.BatchSize,
		Retry:              a.cfg.RetryPolicy(),
		Header:             a.cfg.HeaderParser(nil),
		FirstSessionColumn: a.cfg.Schedule.FirstSessionColumn,
		Aliases:            a.cfg.Lineup.Aliases,
	}

	engOpts := []engine.Option{engine.WithLogger(a.log), engine.WithMetrics(a.metrics)}
	if opts.Clock != nil {
		engOpts = append(engOpts, engine.WithClock(opts.Clock))
	}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDs(opts.RunIDs))
	}
	if opts.Sleeper != nil {
		engOpts = append(engOpts, engine.WithSleeper(opts.Sleeper))
	}
	return engine.New(a.store, src, settings, engOpts...), nil
}

// writeMetrics exports the registry when a textfile is configured. A
// failed export is logged, never fatal.
func (a *app) writeMetrics() {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.log.Error("metrics export failed", "error", err)
	}
}
