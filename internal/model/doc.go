// Package model defines the records the sync engine reconciles into the
// store, their natural keys and validation tags, and the ledger types that
// describe a run.
package model
