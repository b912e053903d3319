// Package harness runs end-to-end sync scenarios against the real engine.
//
// A scenario is a YAML file holding a workbook and a list of runs. Each
// run executes the engine against a fresh in-memory database shared by the
// whole scenario, so later runs see what earlier ones wrote. A run may
// replace sheets before it starts, which is how a scenario models someone
// editing the spreadsheet between syncs.
//
// # Scenario Format
//
//	name: incremental_reactivates_member
//	description: "A filled cell brings an inactive member back"
//	workbook:
//	  sheets:
//	    Roster:
//	      - [Name, Position]
//	      - [Ada Lovelace, Rower]
//	runs:
//	  - mode: full
//	  - mode: incremental
//	    sheets:
//	      Attendance: [...]
//	    expect:
//	      status: completed
//	assertions:
//	  - type: trace_contains
//	    run: 2
//	    entity: attendance
//	    status: completed
//	  - type: final_state
//	    table: members
//	    where: { member_key: "ada lovelace" }
//	    expect: { is_active: 1 }
//
// # Assertion Types
//
//   - trace_contains: a process with the given entity (and status) ran
//   - trace_order: processes ran in the given order
//   - trace_count: an entity's process ran exactly N times
//   - final_state: one database row matches the expected columns
//   - row_count: a table holds exactly N rows
//
// # Deterministic Testing
//
// Runs use a stepping clock, sequential run ids ("run-1", "run-2", ...)
// and a sleeper that never waits, so the summaries compared against golden
// files are identical on every execution.
package harness
