package harness

// TraceEvent is one entity process as it ran.
type TraceEvent struct {
	Run       int    `json:"run"`
	RunID     string `json:"run_id,omitempty"`
	Entity    string `json:"entity"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	Accepted  int    `json:"accepted"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Failed    int    `json:"failed"`
	Warnings  int    `json:"warnings"`
}

// RunRecord is the outcome of one scenario run.
type RunRecord struct {
	RunID     string `json:"run_id,omitempty"`
	Mode      string `json:"mode"`
	Entity    string `json:"entity,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`
	Status    string `json:"status"`
	Unchanged bool   `json:"unchanged,omitempty"`
	Planned   int    `json:"planned"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Runs []RunRecord `json:"runs"`

	// Trace lists every process of every run in execution order.
	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	// Counts holds the row count of every table after the last run.
	Counts map[string]int `json:"counts,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunRecord{},
		Trace:  []TraceEvent{},
		Errors: []string{},
		Counts: make(map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// runTrace returns the events of the 1-based run n, or every event when n
// is zero.
func (r *Result) runTrace(n int) []TraceEvent {
	if n == 0 {
		return r.Trace
	}
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Run == n {
			out = append(out, ev)
		}
	}
	return out
}
