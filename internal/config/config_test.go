package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rowsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ROWSYNC_SOURCE_SPREADSHEET_ID", "sheet-123")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "rowsync.db", cfg.Database.Path)
	assert.Equal(t, SourceSheets, cfg.Source.Kind)
	assert.Equal(t, "sheet-123", cfg.Source.SpreadsheetID)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, 3, cfg.Sync.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Sync.RetryDelay)
	assert.Equal(t, "#ERROR!", cfg.Tokens.Error)
	assert.Equal(t, "TBD", cfg.Tokens.Placeholder)
	assert.Equal(t, "6:00 AM", cfg.Schedule.DefaultTime)
	assert.Equal(t, 1, cfg.Schedule.FirstSessionColumn)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileEnvFlagLayers(t *testing.T) {
	path := writeFile(t, `
database:
  path: /var/lib/rowsync/club.db
source:
  kind: file
  file: workbook.yaml
sheets:
  attendance: "'Spring Term'!A1:Z200"
sync:
  batch_size: 25
  retry_delay: 250ms
lineup:
  aliases:
    Kni: Knifton
    Wal: Walrus
`)
	t.Setenv("ROWSYNC_SYNC_BATCH_SIZE", "10")
	t.Setenv("ROWSYNC_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("retries", 3, "")
	flags.Int("batch-size", 50, "")
	require.NoError(t, flags.Parse([]string{"--retries=5"}))

	cfg, err := Load(Options{File: path, Flags: map[string]*pflag.Flag{
		"sync.retry_attempts": flags.Lookup("retries"),
		"sync.batch_size":     flags.Lookup("batch-size"),
	}})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/rowsync/club.db", cfg.Database.Path)
	assert.Equal(t, SourceFile, cfg.Source.Kind)
	assert.Equal(t, "'Spring Term'!A1:Z200", cfg.Sheets.Attendance)
	assert.Equal(t, 10, cfg.Sync.BatchSize, "env beats file and unset flags")
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.RetryDelay)
	assert.Equal(t, 5, cfg.Sync.RetryAttempts, "flags beat everything")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "Walrus", cfg.Lineup.Aliases["wal"], "viper lowercases map keys")

	policy := cfg.RetryPolicy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, policy.InitialDelay)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := writeFile(t, `
source:
  kind: sheets
sync:
  batch_size: 0
schedule:
  default_time: dawn
`)
	_, err := Load(Options{File: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.spreadsheet_id is required")
	assert.Contains(t, err.Error(), "sync.batch_size must be at least 1")
	assert.Contains(t, err.Error(), `schedule.default_time: "dawn" is not a time of day`)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Path: "x.db"},
		Source:   SourceConfig{Kind: "ftp"},
		Sheets:   SheetsConfig{Roster: "Roster!Z1:A1", Equipment: "Equipment", Attendance: ""},
		Sync:     SyncConfig{BatchSize: 1, RetryAttempts: 1},
		Schedule: ScheduleConfig{DefaultTime: "6:00 AM", MorningEnd: "8:00 AM", EveningEnd: "7:30 PM", FirstSessionColumn: 0},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `source.kind "ftp"`)
	assert.Contains(t, err.Error(), "sheets.roster")
	assert.Contains(t, err.Error(), "sheets.attendance must name a sheet")
	assert.Contains(t, err.Error(), "first_session_column")
}
