// Package store provides the SQLite target of a sync run.
//
// The store holds:
//   - Members, equipment, sessions: keyed by natural key
//   - Attendance: keyed by (session, member); a missing cell is a missing row
//   - Lineups: derived per (session, equipment unit)
//   - Sync jobs and their per-entity steps: the audit ledger
//
// # Critical Patterns
//
// Idempotent upserts:
//   - Every record is looked up by natural key, inserted when absent, and
//     updated only when a mutable field differs
//   - A second run over unchanged input reports every record unchanged
//
// Per-record isolation:
//   - Loads run in batches, one transaction per batch
//   - Each record runs under its own SAVEPOINT; a failing record is rolled
//     back alone and counted, the batch still commits
//
// Session ordinals:
//   - sessions.ordinal is the column position of the session in the current
//     source header; at most one session holds each ordinal
//   - Sessions that leave the header keep their row but lose their ordinal
//
// Ledger immutability:
//   - A job is written as running and finished exactly once
//   - Finishing or adding steps to a terminal job returns ErrJobFinalized
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
