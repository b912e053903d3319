// Package engine implements the rowsync orchestrator.
//
// The engine sequences the entity processes of a run and owns its ledger
// row. Each process is a pipeline of extract, transform, validate and load.
//
// ARCHITECTURE:
//
// Strictly Sequential Processes:
// Processes run one at a time in model.DependencyOrder. Later processes
// read rows written by earlier ones, so process N's writes are committed
// before process N+1 extracts. There are no background goroutines.
//
// Run Flow:
// 1. A ledger row is started as running (not on dry runs)
// 2. Each selected process runs through pipeline.Run
// 3. Each finished process appends a step row to the ledger
// 4. The ledger row is finished exactly once: completed, failed or cancelled
//
// Run Scope:
// A run shares one grid cache, so the schedule and attendance processes
// read the attendance sheet once. On dry runs nothing is written; the
// records earlier processes would have written are kept in the scope and
// overlay the store for later lookups.
//
// CRITICAL PATTERNS:
//
// Failure Policy:
// A full or incremental run keeps going after a process fails and reports
// the run as failed. A single-entity run stops at the first failure and
// returns a *RunError.
//
// Cancellation:
// A cancelled context stops the run between stages and finishes the ledger
// row as cancelled.
package engine
