package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/sheet"
	"github.com/roach88/rowsync/internal/source"
)

// ActivityWriter flips a member's activity flag. It reports whether the
// flag changed; unknown members report false.
type ActivityWriter interface {
	SetMemberActive(ctx context.Context, key string, active bool) (bool, error)
}

// Attendance reads the attendance grid: the session header block on top,
// then one row per member with the name in NameColumn and one cell per
// session column.
//
// The transform has a side effect. A member whose row is blank under every
// session column gets no records and is deactivated through Activity; a
// member with at least one filled cell is reactivated. Both calls only
// write when the flag actually changes, so repeated runs flip a member at
// most once.
type Attendance struct {
	Parser      sheet.HeaderParser
	FirstColumn int
	NameColumn  int
	Activity    ActivityWriter
	Logger      *slog.Logger
}

// Transform classifies every member cell under a session column.
func (a Attendance) Transform(ctx context.Context, g source.Grid) (pipeline.Rows[model.Attendance], error) {
	var out pipeline.Rows[model.Attendance]
	headers, _ := SessionColumns(a.Parser, g, a.FirstColumn)
	if len(headers) == 0 {
		out.Warn(pipeline.Warning{
			Entity:  string(model.EntityAttendance),
			Message: "no session columns in header; member activity left unchanged",
		})
		return out, nil
	}

	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]int)
	for r := sheet.HeaderRows; r < g.Height(); r++ {
		rowNum := r + 1
		name := sheet.DisplayName(g.Cell(r, a.NameColumn).Text)
		if name == "" {
			continue
		}
		key := sheet.NormalizeName(name)
		if first, dup := seen[key]; dup {
			out.Warn(pipeline.Warning{
				Entity:  string(model.EntityAttendance),
				Row:     rowNum,
				Message: fmt.Sprintf("duplicate member row %q ignored; keeping row %d", name, first),
			})
			continue
		}
		seen[key] = rowNum

		filled := 0
		var records []model.Attendance
		var warnings []pipeline.Warning
		for _, h := range headers {
			cell := g.Cell(r, h.Column)
			if cell.IsBlank() {
				continue
			}
			filled++

			col := source.ColumnName(h.Column)
			if cell.Kind == source.KindError {
				warnings = append(warnings, pipeline.Warning{
					Entity:  string(model.EntityAttendance),
					Row:     rowNum,
					Column:  col,
					Message: fmt.Sprintf("broken formula for %s; no record", name),
				})
				continue
			}
			c, ok := ClassifyCell(cell)
			if !ok {
				continue
			}
			if c.Uncertain {
				warnings = append(warnings, pipeline.Warning{
					Entity:  string(model.EntityAttendance),
					Row:     rowNum,
					Column:  col,
					Message: fmt.Sprintf("unrecognized value %q for %s; recorded as No", cell.Text, name),
				})
			}
			records = append(records, model.Attendance{
				SessionOrdinal: h.Ordinal,
				SessionDate:    h.Date,
				SessionStart:   h.Start,
				MemberKey:      key,
				Status:         c.Status,
				Notes:          c.Note,
			})
		}

		if filled == 0 {
			changed, err := a.setActive(ctx, key, false)
			if err != nil {
				return out, err
			}
			if changed {
				logger.Info("member deactivated", "member", key, "row", rowNum)
			}
			out.Add(pipeline.Skip[model.Attendance]())
			continue
		}

		changed, err := a.setActive(ctx, key, true)
		if err != nil {
			return out, err
		}
		if changed {
			logger.Info("member reactivated", "member", key, "row", rowNum)
		}
		for _, w := range warnings {
			out.Warn(w)
		}
		for _, rec := range records {
			out.Add(pipeline.Accept(rec))
		}
	}
	return out, nil
}

func (a Attendance) setActive(ctx context.Context, key string, active bool) (bool, error) {
	if a.Activity == nil {
		return false, nil
	}
	changed, err := a.Activity.SetMemberActive(ctx, key, active)
	if err != nil {
		return false, fmt.Errorf("set activity of %q: %w", key, err)
	}
	return changed, nil
}
