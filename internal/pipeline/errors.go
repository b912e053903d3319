package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes process-level failures.
type ErrorKind string

const (
	// KindExtraction: the source could not be read after every retry.
	KindExtraction ErrorKind = "EXTRACTION_FAILED"

	// KindValidation: the transformed batch failed structural or
	// referential checks, so nothing was loaded.
	KindValidation ErrorKind = "VALIDATION_FAILED"

	// KindLoad: the load phase itself broke (not a single record).
	KindLoad ErrorKind = "LOAD_FAILED"

	// KindCancelled: the run's context was cancelled.
	KindCancelled ErrorKind = "CANCELLED"
)

// Error is a failure that stops one entity process.
type Error struct {
	Kind    ErrorKind
	Entity  string
	Message string

	// Details carries machine-readable context for the ledger.
	Details map[string]string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Entity != "" {
		msg = fmt.Sprintf("%s: %s (entity=%s)", e.Kind, e.Message, e.Entity)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func kindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// IsExtractionError reports whether err is an exhausted extraction.
func IsExtractionError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindExtraction
}

// IsValidationError reports whether err is a failed validation.
func IsValidationError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindValidation
}

// IsCancelled reports whether err stems from cancellation.
func IsCancelled(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindCancelled
}

// NewExtractionError wraps the last extraction failure.
func NewExtractionError(entity string, attempts int, err error) *Error {
	return &Error{
		Kind:    KindExtraction,
		Entity:  entity,
		Message: fmt.Sprintf("source read failed after %d attempt(s)", attempts),
		Details: map[string]string{"attempts": fmt.Sprintf("%d", attempts)},
		Err:     err,
	}
}

// NewValidationError summarizes a rejected batch.
func NewValidationError(entity string, problems []string) *Error {
	details := make(map[string]string, len(problems))
	for i, p := range problems {
		details[fmt.Sprintf("error_%d", i+1)] = p
	}
	msg := fmt.Sprintf("%d validation error(s)", len(problems))
	if len(problems) > 0 {
		msg += ", first: " + problems[0]
	}
	return &Error{
		Kind:    KindValidation,
		Entity:  entity,
		Message: msg,
		Details: details,
	}
}

// NewLoadError wraps an infrastructure failure during load.
func NewLoadError(entity string, err error) *Error {
	return &Error{Kind: KindLoad, Entity: entity, Message: "load aborted", Err: err}
}

// NewCancelledError marks a process stopped by cancellation.
func NewCancelledError(entity string, err error) *Error {
	return &Error{Kind: KindCancelled, Entity: entity, Message: "run cancelled", Err: err}
}
