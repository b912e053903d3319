package engine

import (
	"context"
	"fmt"

	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/source"
)

// CheckResult is the outcome of one connectivity check.
type CheckResult struct {
	Name   string
	Detail string
	Err    error
}

// OK reports whether the check passed.
func (c CheckResult) OK() bool {
	return c.Err == nil
}

// Check pings the store and reads every configured sheet once, with the
// same retry policy a run uses. It writes nothing. The returned error is
// non-nil when any check failed.
func (e *Engine) Check(ctx context.Context) ([]CheckResult, error) {
	var results []CheckResult

	storeCheck := CheckResult{Name: "store", Detail: "ping"}
	if err := e.store.Ping(ctx); err != nil {
		storeCheck.Err = err
	}
	results = append(results, storeCheck)

	cache := newGridCache(e.src)
	sheets := []struct {
		name string
		req  source.Request
	}{
		{"roster sheet", e.settings.Roster},
		{"equipment sheet", e.settings.Equipment},
		{"attendance sheet", e.settings.Attendance},
	}
	for _, s := range sheets {
		out := pipeline.Retry(ctx, e.settings.Retry, e.sleeper, func(ctx context.Context) (source.Grid, error) {
			return cache.fetch(ctx, s.req)
		})
		res := CheckResult{Name: s.name, Err: out.Err}
		if out.Err == nil {
			res.Detail = fmt.Sprintf("%s: %d row(s) x %d column(s)", s.req.A1(), out.Value.Height(), out.Value.Width())
		} else {
			res.Detail = s.req.A1()
		}
		results = append(results, res)
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			e.logger.Error("check failed", "check", r.Name, "error", r.Err)
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d check(s) failed", failed, len(results))
	}
	return results, nil
}
