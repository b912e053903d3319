package engine

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/store"
	"github.com/roach88/rowsync/internal/transform"
)

// runScope is what later processes of one run know about earlier ones.
//
// On a live run every process commits before the next begins, so lookups go
// straight to the store. On a dry run nothing is committed: the batches
// earlier processes accepted are kept here and overlay the store, and
// activity flips are recorded instead of written.
//
// runScope implements validate.Directory and transform.ActivityWriter.
type runScope struct {
	st     *store.Store
	dryRun bool

	members   map[string]model.Member
	equipment map[string]model.Equipment
	sessions  map[int]model.Session

	attendance        []model.Attendance
	attendancePlanned bool

	// activity holds dry-run flips by member key.
	activity map[string]bool
}

func newRunScope(st *store.Store, dryRun bool) *runScope {
	return &runScope{st: st, dryRun: dryRun, activity: make(map[string]bool)}
}

func (s *runScope) planMembers(members []model.Member) {
	s.members = make(map[string]model.Member, len(members))
	for _, m := range members {
		s.members[m.Key] = m
	}
}

func (s *runScope) planEquipment(units []model.Equipment) {
	s.equipment = make(map[string]model.Equipment, len(units))
	for _, e := range units {
		s.equipment[e.Key] = e
	}
}

func (s *runScope) planSessions(sessions []model.Session) {
	s.sessions = make(map[int]model.Session, len(sessions))
	for _, ss := range sessions {
		s.sessions[ss.Ordinal] = ss
	}
}

func (s *runScope) planAttendance(records []model.Attendance) {
	s.attendance = records
	s.attendancePlanned = true
}

// Session implements validate.Directory. A dry run that planned a schedule
// answers from the plan alone, since loading it would have released every
// ordinal the header no longer holds.
func (s *runScope) Session(ctx context.Context, ordinal int) (model.Session, bool, error) {
	if s.dryRun && s.sessions != nil {
		ss, ok := s.sessions[ordinal]
		return ss, ok, nil
	}
	ss, err := s.st.SessionByOrdinal(ctx, ordinal)
	if errors.Is(err, store.ErrNotFound) {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, err
	}
	return ss, true, nil
}

// MemberExists implements validate.Directory.
func (s *runScope) MemberExists(ctx context.Context, key string) (bool, error) {
	if s.dryRun {
		if _, ok := s.members[key]; ok {
			return true, nil
		}
	}
	_, err := s.st.Member(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// SetMemberActive implements transform.ActivityWriter.
func (s *runScope) SetMemberActive(ctx context.Context, key string, active bool) (bool, error) {
	if !s.dryRun {
		return s.st.SetMemberActive(ctx, key, active)
	}

	cur, ok := s.activity[key]
	if !ok {
		m, err := s.st.Member(ctx, key)
		switch {
		case err == nil:
			cur = m.Active
		case errors.Is(err, store.ErrNotFound):
			if _, planned := s.members[key]; !planned {
				return false, nil
			}
			// a member the roster would create starts active
			cur = true
		default:
			return false, err
		}
	}
	s.activity[key] = active
	return cur != active, nil
}

// lineupSource gathers what lineups are built from.
func (s *runScope) lineupSource(ctx context.Context) (transform.LineupSource, error) {
	var src transform.LineupSource

	members, err := s.st.Members(ctx)
	if err != nil {
		return src, err
	}
	units, err := s.st.EquipmentList(ctx)
	if err != nil {
		return src, err
	}
	if !s.dryRun {
		assignments, err := s.st.BoatAssignments(ctx)
		if err != nil {
			return src, err
		}
		return transform.LineupSource{Assignments: assignments, Members: members, Equipment: units}, nil
	}

	// updates never touch the stored activity flag
	stored := make(map[string]bool, len(members))
	for _, m := range members {
		stored[m.Key] = m.Active
	}
	src.Members = overlay(members, s.members, func(m model.Member) string { return m.Key })
	for i, m := range src.Members {
		if active, ok := stored[m.Key]; ok {
			src.Members[i].Active = active
		}
		if active, ok := s.activity[m.Key]; ok {
			src.Members[i].Active = active
		}
	}
	src.Equipment = overlay(units, s.equipment, func(e model.Equipment) string { return e.Key })

	if !s.attendancePlanned {
		src.Assignments, err = s.st.BoatAssignments(ctx)
		return src, err
	}
	for _, a := range s.attendance {
		if a.Status == model.AttendYes && a.Notes != "" {
			src.Assignments = append(src.Assignments, a)
		}
	}
	return src, nil
}

// overlay merges planned records over stored ones by key, sorted by key.
func overlay[T any](stored []T, planned map[string]T, key func(T) string) []T {
	merged := make(map[string]T, len(stored)+len(planned))
	for _, v := range stored {
		merged[key(v)] = v
	}
	maps.Copy(merged, planned)
	out := make([]T, 0, len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		out = append(out, merged[k])
	}
	return out
}
