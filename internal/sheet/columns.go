package sheet

import "strings"

// NotFound is returned by Resolve when no header matches.
const NotFound = -1

// Resolve returns the index of the first column whose lowercased header text
// contains one of the candidates, or NotFound. Columns are scanned left to
// right and, within a column, candidates in order. First match wins.
func Resolve(header []string, candidates ...string) int {
	lowered := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			lowered = append(lowered, c)
		}
	}
	for i, h := range header {
		text := strings.ToLower(h)
		for _, c := range lowered {
			if strings.Contains(text, c) {
				return i
			}
		}
	}
	return NotFound
}

// Field is one logical column a transformer wants to read.
type Field struct {
	Name       string
	Candidates []string
	Required   bool
}

// ColumnMap maps field names to resolved column indices. Unresolved fields
// are absent.
type ColumnMap map[string]int

// Columns resolves every field against header. It returns the names of
// required fields that could not be found; optional fields are simply left
// out of the map.
func Columns(header []string, fields []Field) (ColumnMap, []string) {
	cols := make(ColumnMap, len(fields))
	var missing []string
	for _, f := range fields {
		idx := Resolve(header, f.Candidates...)
		if idx == NotFound {
			if f.Required {
				missing = append(missing, f.Name)
			}
			continue
		}
		cols[f.Name] = idx
	}
	return cols, missing
}

// Index returns the column of field, or NotFound.
func (m ColumnMap) Index(field string) int {
	if idx, ok := m[field]; ok {
		return idx
	}
	return NotFound
}

// Get returns the trimmed text of field in row. It reports false when the
// field was not resolved or the row is too short.
func (m ColumnMap) Get(row []string, field string) (string, bool) {
	idx, ok := m[field]
	if !ok || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}
