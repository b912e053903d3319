package source

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a zero-based rectangular selection. EndRow and EndCol are
// inclusive; -1 leaves that edge open.
type Range struct {
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// All selects the whole sheet.
var All = Range{EndRow: -1, EndCol: -1}

// ParseRange parses A1 notation such as "A1:Z200", "B2:F", "A:H" or "C3".
// An empty string selects everything.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return All, nil
	}
	start, end, hasEnd := strings.Cut(s, ":")
	r0, c0, err := parseRef(start)
	if err != nil {
		return Range{}, fmt.Errorf("parse range %q: %w", s, err)
	}
	if r0 < 0 {
		r0 = 0
	}
	if c0 < 0 {
		c0 = 0
	}
	if !hasEnd {
		return Range{StartRow: r0, StartCol: c0, EndRow: r0, EndCol: c0}, nil
	}
	r1, c1, err := parseRef(end)
	if err != nil {
		return Range{}, fmt.Errorf("parse range %q: %w", s, err)
	}
	if (r1 >= 0 && r1 < r0) || (c1 >= 0 && c1 < c0) {
		return Range{}, fmt.Errorf("parse range %q: end precedes start", s)
	}
	return Range{StartRow: r0, StartCol: c0, EndRow: r1, EndCol: c1}, nil
}

// parseRef parses "B12" into (11, 1). A missing row or column yields -1.
func parseRef(ref string) (row, col int, err error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return 0, 0, fmt.Errorf("empty cell reference")
	}
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	letters, digits := ref[:i], ref[i:]
	col = -1
	if letters != "" {
		col = 0
		for _, ch := range letters {
			col = col*26 + int(ch-'A'+1)
		}
		col--
	}
	row = -1
	if digits != "" {
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("invalid row in %q", ref)
		}
		row = n - 1
	}
	if letters == "" && digits == "" {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	return row, col, nil
}

// ColumnName renders a zero-based column index in letter notation.
func ColumnName(col int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name
}
