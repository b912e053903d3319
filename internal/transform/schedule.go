package transform

import (
	"fmt"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/sheet"
	"github.com/roach88/rowsync/internal/source"
)

// SessionColumns resolves the header block of the attendance grid. Columns
// the parser cannot read are reported as warnings. A column repeating an
// earlier (date, start) pair is dropped like a malformed one, so the cells
// under it are never attributed to the wrong session, and ordinals are
// renumbered over the columns that remain.
func SessionColumns(p sheet.HeaderParser, g source.Grid, firstCol int) ([]sheet.SessionHeader, []pipeline.Warning) {
	headers, skipped := p.Parse(g, firstCol)

	var warnings []pipeline.Warning
	for _, s := range skipped {
		warnings = append(warnings, pipeline.Warning{
			Entity:  string(model.EntitySchedule),
			Column:  source.ColumnName(s.Column),
			Message: "column skipped: " + s.Reason,
		})
	}

	seen := make(map[string]int)
	out := make([]sheet.SessionHeader, 0, len(headers))
	for _, h := range headers {
		slot := h.Date + " " + h.Start
		if col, dup := seen[slot]; dup {
			warnings = append(warnings, pipeline.Warning{
				Entity:  string(model.EntitySchedule),
				Column:  source.ColumnName(h.Column),
				Message: fmt.Sprintf("duplicate session %s; keeping column %s", slot, source.ColumnName(col)),
			})
			continue
		}
		seen[slot] = h.Column
		h.Ordinal = len(out) + 1
		out = append(out, h)
	}
	return out, warnings
}

// Schedule turns the header block into one session per accepted column.
func Schedule(p sheet.HeaderParser, g source.Grid, firstCol int) pipeline.Rows[model.Session] {
	headers, warnings := SessionColumns(p, g, firstCol)

	var out pipeline.Rows[model.Session]
	for _, w := range warnings {
		out.Warn(w)
	}
	for _, h := range headers {
		out.Add(pipeline.Accept(model.Session{
			Ordinal: h.Ordinal,
			Date:    h.Date,
			Start:   h.Start,
			End:     h.End,
		}))
	}
	return out
}
