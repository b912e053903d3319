package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/source"
)

// gridCache remembers every grid fetched during one run. The schedule and
// attendance processes share the attendance sheet, and the incremental
// fingerprint check reads it too; the source is asked once.
//
// Only successful fetches are cached, so a retried extract goes back to the
// source.
type gridCache struct {
	src   source.Source
	grids map[string]source.Grid
	calls int
}

func newGridCache(src source.Source) *gridCache {
	return &gridCache{src: src, grids: make(map[string]source.Grid)}
}

// fetch returns the grid for req. A missing sheet is marked permanent so
// the retry loop gives up at once.
func (c *gridCache) fetch(ctx context.Context, req source.Request) (source.Grid, error) {
	key := req.A1()
	if g, ok := c.grids[key]; ok {
		return g, nil
	}
	c.calls++
	g, err := c.src.Fetch(ctx, req.Sheet, req.Range)
	if err != nil {
		err = fmt.Errorf("fetch %s from %s: %w", key, c.src.Name(), err)
		if errors.Is(err, source.ErrSheetNotFound) {
			return source.Grid{}, pipeline.Permanent(err)
		}
		return source.Grid{}, err
	}
	c.grids[key] = g
	return g, nil
}

// cached returns a grid fetched earlier in the run without calling the
// source.
func (c *gridCache) cached(req source.Request) (source.Grid, bool) {
	g, ok := c.grids[req.A1()]
	return g, ok
}
