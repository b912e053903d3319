package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/source"
)

// DefaultNow is the clock start when a scenario sets none. Header dates
// without a year resolve against it.
const DefaultNow = "2025-01-03T12:00:00Z"

// Scenario defines an end-to-end sync scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Now is the RFC 3339 start of the stepping clock.
	Now string `yaml:"now,omitempty"`

	// Workbook is the spreadsheet as it stands before the first run.
	Workbook source.Workbook `yaml:"workbook"`

	Runs []RunStep `yaml:"runs"`

	// Assertions are checked against the trace and the final database.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RunStep is one engine run.
type RunStep struct {
	// Mode is full, incremental, single or test.
	Mode string `yaml:"mode"`

	// Entity names the process for single runs.
	Entity string `yaml:"entity,omitempty"`

	DryRun bool `yaml:"dry_run,omitempty"`

	// Sheets replace whole sheets of the workbook before this run. The
	// replacement stays in place for later runs. A null sheet deletes it.
	Sheets map[string][][]any `yaml:"sheets,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected run outcome.
type ExpectClause struct {
	// Status is the expected job status.
	Status string `yaml:"status"`

	// Error is true when the run must return an error.
	Error bool `yaml:"error,omitempty"`

	Unchanged *bool `yaml:"unchanged,omitempty"`
	Planned   *int  `yaml:"planned,omitempty"`
}

// Assertion validates the trace or the final database.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Run restricts trace assertions to one 1-based run. Zero means all.
	Run int `yaml:"run,omitempty"`

	Entity string `yaml:"entity,omitempty"`
	Status string `yaml:"status,omitempty"`

	// Entities is the expected process order (trace_order).
	Entities []string `yaml:"entities,omitempty"`

	// Count is the expected number of processes (trace_count) or rows
	// (row_count).
	Count int `yaml:"count,omitempty"`

	// Table, Where and Expect drive final_state; row_count uses Table.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRowCount      = "row_count"
)

var runModes = map[string]bool{"full": true, "incremental": true, "single": true, "test": true}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" for "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// start returns the clock start.
func (s *Scenario) start() (time.Time, error) {
	now := s.Now
	if now == "" {
		now = DefaultNow
	}
	t, err := time.Parse(time.RFC3339, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("now: %w", err)
	}
	return t.UTC(), nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Workbook.Sheets) == 0 {
		return fmt.Errorf("workbook must have at least one sheet")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}
	if _, err := s.start(); err != nil {
		return err
	}

	for i, run := range s.Runs {
		if !runModes[run.Mode] {
			return fmt.Errorf("runs[%d]: unknown mode %q", i, run.Mode)
		}
		if run.Mode == "single" {
			if _, ok := model.ParseEntity(run.Entity); !ok {
				return fmt.Errorf("runs[%d]: single runs need an entity, got %q", i, run.Entity)
			}
		} else if run.Entity != "" {
			return fmt.Errorf("runs[%d]: entity is only valid for single runs", i)
		}
		if run.Expect != nil && run.Expect.Status == "" {
			return fmt.Errorf("runs[%d].expect: status is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Runs)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, runs int) error {
	if a.Run < 0 || a.Run > runs {
		return fmt.Errorf("assertions[%d]: run %d is out of range 1..%d", index, a.Run, runs)
	}

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Entities) == 0 {
			return fmt.Errorf("assertions[%d]: entities list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
