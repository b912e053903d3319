// Package pipeline is the generic entity lifecycle: extract, transform,
// validate, load.
//
// A process is four plain functions bundled in Stages and driven by Run.
// Stages run strictly in sequence with no overlap. Only extract may be
// retried, with exponential backoff computed by Policy and waits performed
// by an injectable Sleeper, so retry behavior is testable without real
// delays.
//
// Failure policy:
//   - extraction that exhausts its retries fails the process
//   - row problems become Warnings via RowResult and never stop a transform
//   - any validation error fails the process before anything is written
//   - single-record load failures are counted in model.LoadResult
package pipeline
