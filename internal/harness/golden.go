package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the part of a result compared against golden files. It
// leaves out warning counts and durations so that rewording a warning or
// changing the clock step does not churn every golden file.
type Snapshot struct {
	Scenario string         `json:"scenario"`
	Runs     []runSnapshot  `json:"runs"`
	Counts   map[string]int `json:"counts"`
}

type runSnapshot struct {
	RunID     string            `json:"run_id,omitempty"`
	Mode      string            `json:"mode"`
	Entity    string            `json:"entity,omitempty"`
	DryRun    bool              `json:"dry_run,omitempty"`
	Status    string            `json:"status"`
	Unchanged bool              `json:"unchanged,omitempty"`
	Planned   int               `json:"planned"`
	Processes []processSnapshot `json:"processes,omitempty"`
}

type processSnapshot struct {
	Entity    string `json:"entity"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	Accepted  int    `json:"accepted"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Failed    int    `json:"failed"`
}

// NewSnapshot builds the golden view of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{Scenario: name, Runs: make([]runSnapshot, 0, len(result.Runs)), Counts: result.Counts}
	for i, run := range result.Runs {
		rs := runSnapshot{
			RunID:     run.RunID,
			Mode:      run.Mode,
			Entity:    run.Entity,
			DryRun:    run.DryRun,
			Status:    run.Status,
			Unchanged: run.Unchanged,
			Planned:   run.Planned,
		}
		for _, ev := range result.runTrace(i + 1) {
			rs.Processes = append(rs.Processes, processSnapshot{
				Entity:    ev.Entity,
				Status:    ev.Status,
				Attempts:  ev.Attempts,
				Accepted:  ev.Accepted,
				Created:   ev.Created,
				Updated:   ev.Updated,
				Unchanged: ev.Unchanged,
				Failed:    ev.Failed,
			})
		}
		s.Runs = append(s.Runs, rs)
	}
	return s
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
// Map keys are sorted by encoding/json, so the output is stable.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden
// file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
