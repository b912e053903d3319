package source

import (
	"context"
	"errors"
)

// Source returns the cells of one sheet range. Implementations carry no
// business logic; all shape checks happen in the transformers.
type Source interface {
	// Fetch returns the cells of rng (A1 notation) on the named sheet.
	Fetch(ctx context.Context, sheet, rng string) (Grid, error)

	// Name identifies the source in logs.
	Name() string
}

// ErrSheetNotFound is returned when the named sheet does not exist. It is
// not worth retrying.
var ErrSheetNotFound = errors.New("sheet not found")

// Request names one sheet range.
type Request struct {
	Sheet string
	Range string
}

// ParseRequest splits "Sheet!A1:Z" into its parts. A reference without "!"
// names the whole sheet.
func ParseRequest(ref string) Request {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '!' {
			return Request{Sheet: trimQuotes(ref[:i]), Range: ref[i+1:]}
		}
	}
	return Request{Sheet: trimQuotes(ref)}
}

// A1 renders the request as a single reference string.
func (r Request) A1() string {
	if r.Range == "" {
		return quoteSheet(r.Sheet)
	}
	return quoteSheet(r.Sheet) + "!" + r.Range
}

func (r Request) String() string { return r.A1() }

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

func quoteSheet(s string) string {
	for _, ch := range s {
		if ch == ' ' || ch == '!' || ch == '\'' {
			return "'" + s + "'"
		}
	}
	return s
}
