package cli

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/rowsync/internal/engine"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/source"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Overrides for configuration keys. They only apply when set.
	Database   string
	BatchSize  int
	Retries    int
	RetryDelay time.Duration

	flags *pflag.FlagSet

	// Test hooks. Nil means the production default.
	Clock   engine.Clock
	RunIDs  engine.RunIDGenerator
	Sleeper pipeline.Sleeper
	Source  source.Source
	LogTo   io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rowsync CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{})
}

// NewRootCommandWith creates the root command around opts, so tests can
// inject a clock, run ids and a source.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rowsync",
		Short: "rowsync - spreadsheet to database sync",
		Long: `Sync a club's roster, equipment, schedule and attendance spreadsheet into
a SQLite database.

Every run reads the configured sheets, turns rows into records, validates
them and upserts them by natural key, so running twice changes nothing.
Each run is recorded in a ledger that the status command reads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default ./rowsync.yaml)")
	pf.StringVar(&opts.Database, "db", "", "path to SQLite database (overrides database.path)")
	pf.IntVar(&opts.BatchSize, "batch-size", 50, "records per load transaction")
	pf.IntVar(&opts.Retries, "retries", 3, "source read attempts")
	pf.DurationVar(&opts.RetryDelay, "retry-delay", time.Second, "delay before the first retry, doubling after")
	opts.flags = pf

	// Add subcommands
	cmd.AddCommand(NewFullCommand(opts))
	cmd.AddCommand(NewIncrementalCommand(opts))
	for _, c := range NewEntityCommands(opts) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// configFlags maps configuration keys to the flags that override them.
func (o *RootOptions) configFlags(cmd *cobra.Command) map[string]*pflag.Flag {
	flags := map[string]*pflag.Flag{
		"database.path":       o.flags.Lookup("db"),
		"sync.batch_size":     o.flags.Lookup("batch-size"),
		"sync.retry_attempts": o.flags.Lookup("retries"),
		"sync.retry_delay":    o.flags.Lookup("retry-delay"),
	}
	if f := cmd.Flags().Lookup("dry-run"); f != nil {
		flags["sync.dry_run"] = f
	}
	return flags
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
