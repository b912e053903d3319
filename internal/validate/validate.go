package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/sheet"
)

// Directory answers the referential questions attendance validation asks:
// which session holds an ordinal, and whether a member exists. During a run
// it reflects both the store and what earlier processes planned to write.
type Directory interface {
	Session(ctx context.Context, ordinal int) (model.Session, bool, error)
	MemberExists(ctx context.Context, key string) (bool, error)
}

// Checker validates transformed batches.
type Checker struct {
	v *validator.Validate
}

// New returns a Checker with the record tags and the clock tag registered.
func New() *Checker {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("clock", validateClock)
	return &Checker{v: v}
}

// validateClock accepts times already normalized to "3:04 PM".
func validateClock(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	clock, ok := sheet.NormalizeClock(s)
	return ok && clock == s
}

// Struct checks one record's tags and renders each failure as a sentence.
func (c *Checker) Struct(label string, rec any) []string {
	err := c.v.Struct(rec)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return []string{fmt.Sprintf("%s: %v", label, err)}
	}
	out := make([]string, 0, len(fields))
	for _, fe := range fields {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: %s fails %s=%s (value %v)", label, fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			out = append(out, fmt.Sprintf("%s: %s fails %s (value %v)", label, fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return out
}

// Members checks the roster batch. dataRows is the number of non-header
// rows the sheet had; a sheet with rows that yields no members is an error.
func (c *Checker) Members(members []model.Member, dataRows int) pipeline.Findings {
	var f pipeline.Findings
	if len(members) == 0 && dataRows > 0 {
		f.Errorf("roster sheet has %d row(s) but produced no members", dataRows)
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		label := fmt.Sprintf("member %q", m.Key)
		f.Errors = append(f.Errors, c.Struct(label, m)...)
		if seen[m.Key] {
			f.Errorf("%s appears more than once", label)
		}
		seen[m.Key] = true
	}
	return f
}

// Equipment checks the equipment batch, with the same empty-sheet rule as
// Members.
func (c *Checker) Equipment(units []model.Equipment, dataRows int) pipeline.Findings {
	var f pipeline.Findings
	if len(units) == 0 && dataRows > 0 {
		f.Errorf("equipment sheet has %d row(s) but produced no units", dataRows)
	}
	seen := make(map[string]bool, len(units))
	for _, e := range units {
		label := fmt.Sprintf("equipment %q", e.Key)
		f.Errors = append(f.Errors, c.Struct(label, e)...)
		if seen[e.Key] {
			f.Errorf("%s appears more than once", label)
		}
		seen[e.Key] = true
	}
	return f
}

// Sessions checks the schedule batch. A header that yields no session at
// all is an error: loading it would strip every stored ordinal.
func (c *Checker) Sessions(sessions []model.Session) pipeline.Findings {
	var f pipeline.Findings
	if len(sessions) == 0 {
		f.Errorf("schedule header produced no sessions")
	}
	ordinals := make(map[int]bool, len(sessions))
	for _, s := range sessions {
		label := fmt.Sprintf("session %d", s.Ordinal)
		f.Errors = append(f.Errors, c.Struct(label, s)...)
		if ordinals[s.Ordinal] {
			f.Errorf("%s appears more than once", label)
		}
		ordinals[s.Ordinal] = true
	}
	return f
}

// Attendance checks attendance against dir. Records for unknown members
// are dropped with a warning. An ordinal no session holds, or a session
// whose stored slot differs from the header the record was read under, is
// an error: loading it would attach answers to the wrong session.
func (c *Checker) Attendance(ctx context.Context, records []model.Attendance, dir Directory) ([]model.Attendance, pipeline.Findings, error) {
	var f pipeline.Findings
	entity := string(model.EntityAttendance)

	type sessionCheck struct {
		session model.Session
		found   bool
	}
	sessions := make(map[int]sessionCheck)
	reported := make(map[int]bool)
	members := make(map[string]bool)
	warned := make(map[string]bool)

	kept := make([]model.Attendance, 0, len(records))
	for _, a := range records {
		label := fmt.Sprintf("attendance %d/%s", a.SessionOrdinal, a.MemberKey)
		if problems := c.Struct(label, a); len(problems) > 0 {
			f.Errors = append(f.Errors, problems...)
			continue
		}

		sc, ok := sessions[a.SessionOrdinal]
		if !ok {
			s, found, err := dir.Session(ctx, a.SessionOrdinal)
			if err != nil {
				return nil, f, fmt.Errorf("look up session %d: %w", a.SessionOrdinal, err)
			}
			sc = sessionCheck{session: s, found: found}
			sessions[a.SessionOrdinal] = sc
		}
		if !sc.found {
			if !reported[a.SessionOrdinal] {
				f.Errorf("no session holds ordinal %d (%s %s)", a.SessionOrdinal, a.SessionDate, a.SessionStart)
				reported[a.SessionOrdinal] = true
			}
			continue
		}
		read := model.Session{Date: a.SessionDate, Start: a.SessionStart}
		if a.SessionDate != "" && !sc.session.SameSlot(read) {
			if !reported[a.SessionOrdinal] {
				f.Errorf("session %d is %s %s in the store but %s %s in the header",
					a.SessionOrdinal, sc.session.Date, sc.session.Start, a.SessionDate, a.SessionStart)
				reported[a.SessionOrdinal] = true
			}
			continue
		}

		exists, ok := members[a.MemberKey]
		if !ok {
			var err error
			exists, err = dir.MemberExists(ctx, a.MemberKey)
			if err != nil {
				return nil, f, fmt.Errorf("look up member %q: %w", a.MemberKey, err)
			}
			members[a.MemberKey] = exists
		}
		if !exists {
			if !warned[a.MemberKey] {
				f.Warn(pipeline.Warning{
					Entity:  entity,
					Message: fmt.Sprintf("member %q is not on the roster; their attendance is dropped", a.MemberKey),
				})
				warned[a.MemberKey] = true
			}
			continue
		}
		kept = append(kept, a)
	}
	return kept, f, nil
}

// Lineups checks derived lineups. Having nothing to aggregate is only a
// warning.
func (c *Checker) Lineups(lineups []model.Lineup) pipeline.Findings {
	var f pipeline.Findings
	if len(lineups) == 0 {
		f.Warn(pipeline.Warning{Entity: string(model.EntityLineup), Message: "no boat assignments to build lineups from"})
	}
	for _, l := range lineups {
		f.Errors = append(f.Errors, c.Struct(fmt.Sprintf("lineup %d/%s", l.SessionOrdinal, l.EquipmentKey), l)...)
	}
	return f
}
