package source

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Workbook is the YAML form of a spreadsheet:
//
//	sheets:
//	  Roster:
//	    - [Name, Role, Sex (M/F)]
//	    - [Ada Lovelace, rower, F]
type Workbook struct {
	Sheets map[string][][]any `yaml:"sheets"`
}

// FileSource serves grids from a YAML workbook. It backs fixtures, the test
// harness and offline runs against an exported spreadsheet.
type FileSource struct {
	path     string
	tokens   Tokens
	workbook Workbook
}

// OpenFile loads a workbook from disk.
func OpenFile(path string, tokens Tokens) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	wb, err := ParseWorkbook(data)
	if err != nil {
		return nil, fmt.Errorf("read workbook %s: %w", path, err)
	}
	return &FileSource{path: path, tokens: tokens, workbook: wb}, nil
}

// NewFileSource wraps an already decoded workbook.
func NewFileSource(name string, wb Workbook, tokens Tokens) *FileSource {
	return &FileSource{path: name, tokens: tokens, workbook: wb}
}

// ParseWorkbook decodes workbook YAML, rejecting unknown top-level fields.
func ParseWorkbook(data []byte) (Workbook, error) {
	var wb Workbook
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&wb); err != nil {
		return Workbook{}, fmt.Errorf("parse yaml: %w", err)
	}
	if len(wb.Sheets) == 0 {
		return Workbook{}, fmt.Errorf("workbook has no sheets")
	}
	return wb, nil
}

// Name implements Source.
func (f *FileSource) Name() string { return "file:" + f.path }

// Fetch implements Source.
func (f *FileSource) Fetch(ctx context.Context, sheet, rng string) (Grid, error) {
	if err := ctx.Err(); err != nil {
		return Grid{}, err
	}
	values, ok := f.workbook.Sheets[sheet]
	if !ok {
		return Grid{}, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	r, err := ParseRange(rng)
	if err != nil {
		return Grid{}, err
	}
	return FromValues(f.tokens, values).Slice(r), nil
}
