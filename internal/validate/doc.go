// Package validate holds the batch checks that run between transform and
// load. Errors abort the load of the whole batch; warnings do not.
//
// Record-level rules live in the validate struct tags of the model types;
// batch-level rules (empty batches, duplicates, references) live here.
package validate
