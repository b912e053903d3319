// Package sheet interprets loosely structured spreadsheet layouts: fuzzy
// header matching, the three-row session header block, and the name and
// time normalization every natural key depends on.
package sheet
