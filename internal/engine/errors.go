package engine

import (
	"errors"
	"fmt"
)

// RunError is returned by Run when a single-shot run does not complete.
//
// Full and incremental runs record failures in the ledger and return a
// summary instead; RunError is for callers that must turn a failure into
// an exit status.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the run in the ledger. Empty for dry runs.
	RunID string

	// Entity is the process that failed.
	Entity string

	// Details contains additional context.
	Details map[string]string

	Err error
}

// RunErrorCode categorizes run failures.
type RunErrorCode string

const (
	// ErrCodeProcessFailed indicates an entity process failed.
	ErrCodeProcessFailed RunErrorCode = "PROCESS_FAILED"

	// ErrCodeCancelled indicates the run was cancelled.
	ErrCodeCancelled RunErrorCode = "RUN_CANCELLED"

	// ErrCodeLedger indicates the ledger could not be written.
	ErrCodeLedger RunErrorCode = "LEDGER_FAILED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.RunID != "" && e.Entity != "":
		msg = fmt.Sprintf("%s: %s (run=%s, entity=%s)", e.Code, e.Message, e.RunID, e.Entity)
	case e.Entity != "":
		msg = fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.Entity)
	case e.RunID != "":
		msg = fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return msg
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsProcessFailed returns true if err is a failed single-shot run.
// Uses errors.As to handle wrapped errors.
func IsProcessFailed(err error) bool {
	var re *RunError
	return errors.As(err, &re) && re.Code == ErrCodeProcessFailed
}

// IsCancelled returns true if err is a cancelled run.
func IsCancelled(err error) bool {
	var re *RunError
	return errors.As(err, &re) && re.Code == ErrCodeCancelled
}

func newLedgerError(runID string, err error) *RunError {
	return &RunError{Code: ErrCodeLedger, Message: "ledger write failed", RunID: runID, Err: err}
}
