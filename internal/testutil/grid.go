package testutil

import "github.com/roach88/rowsync/internal/source"

// Grid builds a source grid from literal rows, classifying values with the
// default tokens. Rows may be ragged.
//
// Example:
//
//	g := testutil.Grid(
//		testutil.Row("Name", "Sex (M/F)"),
//		testutil.Row("Ada Lovelace", "F"),
//	)
func Grid(rows ...[]any) source.Grid {
	return source.FromValues(source.DefaultTokens, rows)
}

// Row is shorthand for a literal grid row.
func Row(values ...any) []any {
	return values
}
