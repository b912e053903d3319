package pipeline

import (
	"fmt"
	"strings"
)

// Warning is a row-level diagnostic. It never stops a process.
type Warning struct {
	Entity  string `json:"entity"`
	Row     int    `json:"row,omitempty"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(w.Entity)
	if w.Row > 0 {
		fmt.Fprintf(&b, " row %d", w.Row)
	}
	if w.Column != "" {
		fmt.Fprintf(&b, " column %s", w.Column)
	}
	b.WriteString(": ")
	b.WriteString(w.Message)
	return b.String()
}

type rowKind int

const (
	rowAccepted rowKind = iota
	rowSkipped
	rowRejected
)

// RowResult is the outcome of transforming one source row: an accepted
// record (possibly with warnings), a silent skip, or a rejection with a
// diagnostic.
type RowResult[T any] struct {
	kind     rowKind
	value    T
	warnings []Warning
}

// Accept keeps value.
func Accept[T any](value T, warnings ...Warning) RowResult[T] {
	return RowResult[T]{kind: rowAccepted, value: value, warnings: warnings}
}

// Skip drops the row without comment, for blank or spacer rows.
func Skip[T any]() RowResult[T] {
	return RowResult[T]{kind: rowSkipped}
}

// Reject drops the row and reports why.
func Reject[T any](w Warning) RowResult[T] {
	return RowResult[T]{kind: rowRejected, warnings: []Warning{w}}
}

// Rows accumulates row results in source order.
type Rows[T any] struct {
	Values   []T
	Warnings []Warning
	Skipped  int
	Rejected int
}

// Add folds one result into the accumulator.
func (r *Rows[T]) Add(res RowResult[T]) {
	r.Warnings = append(r.Warnings, res.warnings...)
	switch res.kind {
	case rowAccepted:
		r.Values = append(r.Values, res.value)
	case rowSkipped:
		r.Skipped++
	case rowRejected:
		r.Rejected++
	}
}

// Warn appends a warning that is not tied to a single result.
func (r *Rows[T]) Warn(w Warning) {
	r.Warnings = append(r.Warnings, w)
}

// Findings are the outcome of validating a transformed batch. Any error
// aborts the load.
type Findings struct {
	Errors   []string
	Warnings []Warning
}

// OK reports whether the batch may be loaded.
func (f Findings) OK() bool {
	return len(f.Errors) == 0
}

// Errorf adds an error.
func (f *Findings) Errorf(format string, args ...any) {
	f.Errors = append(f.Errors, fmt.Sprintf(format, args...))
}

// Warn adds a warning.
func (f *Findings) Warn(w Warning) {
	f.Warnings = append(f.Warnings, w)
}
