// Package config loads rowsync configuration.
//
// Values are layered, later layers winning: built-in defaults, an optional
// YAML file, ROWSYNC_* environment variables, then command-line flags bound
// by the CLI. The result is a plain Config that commands receive
// explicitly.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/sheet"
	"github.com/roach88/rowsync/internal/source"
)

// EnvPrefix prefixes every environment variable: sync.batch_size is read
// from ROWSYNC_SYNC_BATCH_SIZE.
const EnvPrefix = "ROWSYNC"

// Source kinds.
const (
	SourceSheets = "sheets"
	SourceFile   = "file"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Tokens   TokensConfig   `mapstructure:"tokens"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Lineup   LineupConfig   `mapstructure:"lineup"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type SourceConfig struct {
	Kind            string  `mapstructure:"kind"`
	SpreadsheetID   string  `mapstructure:"spreadsheet_id"`
	CredentialsFile string  `mapstructure:"credentials_file"`
	File            string  `mapstructure:"file"`
	RatePerSecond   float64 `mapstructure:"rate_per_second"`
	Burst           int     `mapstructure:"burst"`
}

// SheetsConfig holds the A1 references of the three sheets read.
type SheetsConfig struct {
	Roster     string `mapstructure:"roster"`
	Equipment  string `mapstructure:"equipment"`
	Attendance string `mapstructure:"attendance"`
}

type SyncConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	RetryMaxDelay time.Duration `mapstructure:"retry_max_delay"`
	DryRun        bool          `mapstructure:"dry_run"`
}

type TokensConfig struct {
	Error       string `mapstructure:"error"`
	Placeholder string `mapstructure:"placeholder"`
}

type ScheduleConfig struct {
	DefaultTime        string `mapstructure:"default_time"`
	MorningEnd         string `mapstructure:"morning_end"`
	EveningEnd         string `mapstructure:"evening_end"`
	FirstSessionColumn int    `mapstructure:"first_session_column"`
}

type LineupConfig struct {
	Aliases map[string]string `mapstructure:"aliases"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// defaults are registered with viper so every key is known to the env
// layer even when no file sets it.
var defaults = map[string]any{
	"database.path":                 "rowsync.db",
	"source.kind":                   SourceSheets,
	"source.rate_per_second":        1.0,
	"source.burst":                  1,
	"sheets.roster":                 "Roster",
	"sheets.equipment":              "Equipment",
	"sheets.attendance":             "Attendance",
	"sync.batch_size":               50,
	"sync.retry_attempts":           3,
	"sync.retry_delay":              time.Second,
	"sync.retry_max_delay":          30 * time.Second,
	"sync.dry_run":                  false,
	"tokens.error":                  source.DefaultTokens.Error,
	"tokens.placeholder":            source.DefaultTokens.Placeholder,
	"schedule.default_time":         "6:00 AM",
	"schedule.morning_end":          "8:00 AM",
	"schedule.evening_end":          "7:30 PM",
	"schedule.first_session_column": 1,
	"lineup.aliases":                map[string]string{"Kni": "Knifton"},
	"log.level":                     "info",
	"log.max_size_mb":               10,
	"log.max_backups":               5,
	"log.max_age_days":              30,
}

// optionalKeys have no default.
var optionalKeys = []string{
	"source.spreadsheet_id",
	"source.credentials_file",
	"source.file",
	"log.file",
	"metrics.textfile",
}

// Options control Load.
type Options struct {
	// File is an explicit config path. When empty, rowsync.yaml is looked
	// up in the working directory and a missing file is not an error.
	File string

	// Flags maps config keys to command-line flags bound over the other
	// layers. A flag only wins when it was set.
	Flags map[string]*pflag.Flag
}

// Load reads and validates the configuration.
func Load(opts Options) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// keys without a default are unknown to AutomaticEnv during Unmarshal
	for _, k := range optionalKeys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName("rowsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return Config{}, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	switch c.Source.Kind {
	case SourceSheets:
		if c.Source.SpreadsheetID == "" {
			errs = append(errs, errors.New("source.spreadsheet_id is required for the sheets source"))
		}
	case SourceFile:
		if c.Source.File == "" {
			errs = append(errs, errors.New("source.file is required for the file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind %q must be %s or %s", c.Source.Kind, SourceSheets, SourceFile))
	}
	if c.Source.RatePerSecond < 0 {
		errs = append(errs, errors.New("source.rate_per_second must not be negative"))
	}
	for key, ref := range map[string]string{
		"sheets.roster":     c.Sheets.Roster,
		"sheets.equipment":  c.Sheets.Equipment,
		"sheets.attendance": c.Sheets.Attendance,
	} {
		req := source.ParseRequest(ref)
		if req.Sheet == "" {
			errs = append(errs, fmt.Errorf("%s must name a sheet", key))
			continue
		}
		if _, err := source.ParseRange(req.Range); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if c.Sync.BatchSize < 1 {
		errs = append(errs, errors.New("sync.batch_size must be at least 1"))
	}
	if c.Sync.RetryAttempts < 1 {
		errs = append(errs, errors.New("sync.retry_attempts must be at least 1"))
	}
	if c.Sync.RetryDelay < 0 || c.Sync.RetryMaxDelay < 0 {
		errs = append(errs, errors.New("sync retry delays must not be negative"))
	}
	for key, clock := range map[string]string{
		"schedule.default_time": c.Schedule.DefaultTime,
		"schedule.morning_end":  c.Schedule.MorningEnd,
		"schedule.evening_end":  c.Schedule.EveningEnd,
	} {
		if _, ok := sheet.NormalizeClock(clock); !ok {
			errs = append(errs, fmt.Errorf("%s: %q is not a time of day", key, clock))
		}
	}
	if c.Schedule.FirstSessionColumn < 1 {
		errs = append(errs, errors.New("schedule.first_session_column must be at least 1; column A holds member names"))
	}
	return errors.Join(errs...)
}

// SourceTokens returns the sentinel strings cells are classified with.
func (c Config) SourceTokens() source.Tokens {
	return source.Tokens{Error: c.Tokens.Error, Placeholder: c.Tokens.Placeholder}
}

// RetryPolicy returns the backoff policy for source reads.
func (c Config) RetryPolicy() pipeline.Policy {
	return pipeline.Policy{
		MaxAttempts:  c.Sync.RetryAttempts,
		InitialDelay: c.Sync.RetryDelay,
		MaxDelay:     c.Sync.RetryMaxDelay,
		Multiplier:   2,
	}
}

// HeaderParser returns the session header parser. now supplies the year
// for date labels without one.
func (c Config) HeaderParser(now func() time.Time) sheet.HeaderParser {
	return sheet.HeaderParser{
		Tokens:      c.SourceTokens(),
		DefaultTime: c.Schedule.DefaultTime,
		MorningEnd:  c.Schedule.MorningEnd,
		EveningEnd:  c.Schedule.EveningEnd,
		Now:         now,
	}
}
