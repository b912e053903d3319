// Package transform holds the row transformers: pure functions from source
// grids to records, one per entity.
//
// Transformers never stop on a bad row. Each row becomes an accepted
// record, a silent skip or a rejection carrying a warning; only a missing
// required header column fails a whole transform.
//
// The attendance transformer is the one exception to purity: it adjusts
// member activity while it reads the grid, through an injected
// ActivityWriter.
package transform
