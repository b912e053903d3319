package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowsync/internal/testutil"
)

const clubWorkbook = `sheets:
  Roster:
    - [Name, Position, Gender, Age, Weight (kg)]
    - [Ada Lovelace, Rower, F, "36", "60"]
    - [Grace Hopper, Cox, F, "45", "50"]
    - [Alan Turing, Rower, M, "41", "80"]
  Equipment:
    - [Boat, Type, Status]
    - [Knifton, 8+, ok]
    - [Carson, 4+, ok]
  Attendance:
    - ["", Mon Jan 6, Tue Jan 7]
    - ["", "6:00 AM", "5:30 PM"]
    - ["", "", ""]
    - [Ada Lovelace, "[4] Carson", "Yes"]
    - [Grace Hopper, "[4] Carson", "no"]
    - [Alan Turing, "", ""]
`

// club is a temp directory holding a workbook, a config pointing at it and
// the database path the config names.
type club struct {
	dir    string
	config string
	db     string
	clock  *testutil.StepClock
	runIDs *testutil.SequentialRunIDs
}

func newClub(t *testing.T, extraConfig string) *club {
	t.Helper()
	dir := t.TempDir()
	wb := filepath.Join(dir, "club.yaml")
	require.NoError(t, os.WriteFile(wb, []byte(clubWorkbook), 0o644))

	db := filepath.Join(dir, "rowsync.db")
	cfg := fmt.Sprintf(`database:
  path: %s
source:
  kind: file
  file: %s
  rate_per_second: 0
sync:
  retry_delay: 1ms
%s`, db, wb, extraConfig)
	path := filepath.Join(dir, "rowsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	return &club{
		dir:    dir,
		config: path,
		db:     db,
		clock:  testutil.NewStepClock(time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC), time.Second),
		runIDs: testutil.NewSequentialRunIDs("run"),
	}
}

// run executes one rowsync invocation and returns its stdout.
func (c *club) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{Clock: c.clock, RunIDs: c.runIDs, LogTo: io.Discard}
	cmd := NewRootCommandWith(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", c.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

type runResponse struct {
	Status string    `json:"status"`
	Data   runView   `json:"data"`
	Error  *CLIError `json:"error"`
}

func (c *club) runJSON(t *testing.T, args ...string) (runResponse, error) {
	t.Helper()
	out, err := c.run(t, append(args, "--format", "json")...)
	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, err
}

func TestFullCommand(t *testing.T) {
	c := newClub(t, "")

	resp, err := c.runJSON(t, "full")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, "completed", resp.Data.Status)
	require.Len(t, resp.Data.Processes, 5)
	assert.Equal(t, 12, resp.Data.Totals.Created)
	assert.NotEmpty(t, resp.Data.Fingerprint)

	resp, err = c.runJSON(t, "full")
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Data.Totals.Created)
	assert.Equal(t, 12, resp.Data.Totals.Unchanged, "a second run changes nothing")
}

func TestFullCommand_Text(t *testing.T) {
	c := newClub(t, "")

	out, err := c.run(t, "full")
	require.NoError(t, err)
	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "ENTITY")
	assert.Contains(t, out, "attendance")
	assert.Contains(t, out, "12 created, 0 updated, 0 unchanged, 0 failed")
}

func TestFullCommand_FailedProcessStillExitsZero(t *testing.T) {
	c := newClub(t, "sheets:\n  equipment: Boats\n")

	resp, err := c.runJSON(t, "full")
	require.NoError(t, err)
	assert.Equal(t, "failed", resp.Data.Status)
	require.Len(t, resp.Data.Processes, 5)
	assert.Equal(t, "failed", resp.Data.Processes[1].Status)
	assert.Equal(t, 1, resp.Data.Processes[1].Attempts, "a missing sheet is not retried")
}

func TestIncrementalCommand_SkipsUnchangedSheet(t *testing.T) {
	c := newClub(t, "")

	_, err := c.run(t, "full")
	require.NoError(t, err)

	resp, err := c.runJSON(t, "incremental")
	require.NoError(t, err)
	assert.True(t, resp.Data.Unchanged)
	assert.Empty(t, resp.Data.Processes)
}

func TestTestCommand_WritesNothing(t *testing.T) {
	c := newClub(t, "")

	resp, err := c.runJSON(t, "test")
	require.NoError(t, err)
	assert.True(t, resp.Data.DryRun)
	assert.Empty(t, resp.Data.RunID)
	assert.Equal(t, 12, resp.Data.Planned)

	out, err := c.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded")
}

func TestDryRunFlag(t *testing.T) {
	c := newClub(t, "")

	resp, err := c.runJSON(t, "roster", "--dry-run")
	require.NoError(t, err)
	assert.True(t, resp.Data.DryRun)
	assert.Equal(t, 3, resp.Data.Planned)
	assert.Equal(t, 0, resp.Data.Totals.Created)
}

func TestEntityCommand_FailureExitsOne(t *testing.T) {
	c := newClub(t, "")

	resp, err := c.runJSON(t, "attendance")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSync, resp.Error.Code)
	assert.Equal(t, "failed", resp.Data.Status)
}

func TestStatusCommand(t *testing.T) {
	c := newClub(t, "")

	_, err := c.run(t, "full")
	require.NoError(t, err)
	_, err = c.run(t, "roster")
	require.NoError(t, err)

	out, err := c.run(t, "status", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "roster")
	assert.Contains(t, out, "ATTEMPTS", "verbose lists steps")

	jsonOut, err := c.run(t, "status", "--limit", "1", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data statusView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(jsonOut), &resp))
	require.Len(t, resp.Data.Jobs, 1)
	assert.Equal(t, "run-2", resp.Data.Jobs[0].RunID)
	assert.Equal(t, "roster", resp.Data.Jobs[0].JobType)
	require.Len(t, resp.Data.Jobs[0].Steps, 1)
}

func TestStatusCommand_BadLimit(t *testing.T) {
	c := newClub(t, "")

	_, err := c.run(t, "status", "--limit", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand(t *testing.T) {
	c := newClub(t, "")

	out, err := c.run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "store")
	assert.Contains(t, out, "roster sheet")
	assert.Contains(t, out, "Attendance: 6 row(s) x 3 column(s)")
}

func TestValidateCommand_MissingSheet(t *testing.T) {
	c := newClub(t, "sheets:\n  roster: Members\n")

	out, err := c.run(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "1 of 4 check(s) failed")
}

func TestConfigErrorsExitTwo(t *testing.T) {
	c := newClub(t, "")

	_, err := c.run(t, "full", "--batch-size", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	c.config = filepath.Join(c.dir, "missing.yaml")
	_, err = c.run(t, "status")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFullCommand_WritesMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	prom := filepath.Join(dir, "rowsync.prom")
	c := newClub(t, fmt.Sprintf("metrics:\n  textfile: %s\n", prom))

	_, err := c.run(t, "full")
	require.NoError(t, err)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `rowsync_runs_total{mode="full",status="completed"} 1`)
}
