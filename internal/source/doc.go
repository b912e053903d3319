// Package source adapts spreadsheet back ends into rectangular grids of
// classified cells.
//
// A cell is one of: empty, string, number, date, the error sentinel (a
// broken formula) or the placeholder token. Adapters apply no business
// rules; transformers decide what a cell means.
//
// Implementations:
//   - SheetsSource: Google Sheets API, formatted values
//   - FileSource: YAML workbook, used for fixtures and offline runs
//   - RateLimited: decorator that keeps any source under a read quota
package source
