package model

// Outcome is the result of upserting one record.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"

	// OutcomeRemoved counts derived rows deleted because their source
	// assignments are gone. Record never sees it.
	OutcomeRemoved Outcome = "removed"
)

// RecordFailure describes one record the loader could not write.
type RecordFailure struct {
	Index   int    `json:"index"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

// LoadResult tallies a load phase.
type LoadResult struct {
	Processed int             `json:"processed"`
	Created   int             `json:"created"`
	Updated   int             `json:"updated"`
	Unchanged int             `json:"unchanged"`
	Failed    int             `json:"failed"`
	Removed   int             `json:"removed,omitempty"`
	Failures  []RecordFailure `json:"failures,omitempty"`
}

// Record counts one outcome.
func (r *LoadResult) Record(o Outcome) {
	r.Processed++
	switch o {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeFailed:
		r.Failed++
	}
}

// Fail counts a failed record and keeps its detail.
func (r *LoadResult) Fail(f RecordFailure) {
	r.Record(OutcomeFailed)
	r.Failures = append(r.Failures, f)
}

// Merge adds other's tallies to r.
func (r *LoadResult) Merge(other LoadResult) {
	r.Processed += other.Processed
	r.Created += other.Created
	r.Updated += other.Updated
	r.Unchanged += other.Unchanged
	r.Failed += other.Failed
	r.Removed += other.Removed
	r.Failures = append(r.Failures, other.Failures...)
}

// Changed reports whether any record was created, updated or removed.
func (r LoadResult) Changed() bool {
	return r.Created > 0 || r.Updated > 0 || r.Removed > 0
}
