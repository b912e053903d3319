package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/roach88/rowsync/internal/model"
)

func TestLoadMembers_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	members := []model.Member{testMember("Ada"), testMember("Grace"), testMember("Hedy")}
	members[1].WeightKg = 61.234

	first, err := s.LoadMembers(ctx, members, 2)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.Created != 3 || first.Processed != 3 {
		t.Fatalf("first load = %+v, want 3 created", first)
	}

	second, err := s.LoadMembers(ctx, members, 2)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.Unchanged != 3 || second.Changed() {
		t.Fatalf("second load = %+v, want 3 unchanged", second)
	}

	if n, _ := s.Count(ctx, "members"); n != 3 {
		t.Errorf("members = %d, want 3", n)
	}
}

func TestLoadMembers_UpdatesOnlyChangedFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ada := testMember("Ada")
	if _, err := s.LoadMembers(ctx, []model.Member{ada, testMember("Grace")}, 0); err != nil {
		t.Fatal(err)
	}

	ada.Age = 36
	res, err := s.LoadMembers(ctx, []model.Member{ada, testMember("Grace")}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.Unchanged != 1 {
		t.Fatalf("load = %+v, want 1 updated 1 unchanged", res)
	}

	got, err := s.Member(ctx, "ada")
	if err != nil {
		t.Fatal(err)
	}
	if got.Age != 36 {
		t.Errorf("age = %d, want 36", got.Age)
	}
}

func TestLoadMembers_DoesNotTouchActivityOnUpdate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ada := testMember("Ada")
	if _, err := s.LoadMembers(ctx, []model.Member{ada}, 0); err != nil {
		t.Fatal(err)
	}
	if changed, err := s.SetMemberActive(ctx, "ada", false); err != nil || !changed {
		t.Fatalf("SetMemberActive() = %v, %v", changed, err)
	}

	// The roster transformer always emits Active=true; reloading must not
	// reactivate the member.
	res, err := s.LoadMembers(ctx, []model.Member{ada}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Unchanged != 1 {
		t.Errorf("reload = %+v, want unchanged", res)
	}
	got, _ := s.Member(ctx, "ada")
	if got.Active {
		t.Error("member was reactivated by roster load")
	}
}

func TestSetMemberActive_FlipsOnce(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, []model.Member{testMember("Ada")}, nil)

	changed, err := s.SetMemberActive(ctx, "ada", false)
	if err != nil || !changed {
		t.Fatalf("first deactivate = %v, %v", changed, err)
	}
	changed, err = s.SetMemberActive(ctx, "ada", false)
	if err != nil || changed {
		t.Fatalf("second deactivate = %v, %v; want no change", changed, err)
	}
	changed, err = s.SetMemberActive(ctx, "nobody", false)
	if err != nil || changed {
		t.Fatalf("unknown member = %v, %v", changed, err)
	}
}

func TestLoadSessions_ReleasesMovedOrdinals(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.LoadSessions(ctx, []model.Session{testSession(1, 6), testSession(2, 7)}, 0); err != nil {
		t.Fatal(err)
	}

	// Jan 6 leaves the header; Jan 7 moves to ordinal 1 and Jan 8 takes 2.
	res, err := s.LoadSessions(ctx, []model.Session{testSession(1, 7), testSession(2, 8)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 1 || res.Updated != 1 || res.Failed != 0 {
		t.Fatalf("reload = %+v, want 1 created 1 updated", res)
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"2025-01-06": 0, "2025-01-07": 1, "2025-01-08": 2}
	for _, ss := range sessions {
		if ss.Ordinal != want[ss.Date] {
			t.Errorf("%s ordinal = %d, want %d", ss.Date, ss.Ordinal, want[ss.Date])
		}
	}

	again, err := s.LoadSessions(ctx, []model.Session{testSession(1, 7), testSession(2, 8)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if again.Unchanged != 2 {
		t.Errorf("third load = %+v, want 2 unchanged", again)
	}
}

func TestAttendance_EmptyCellIsNotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, []model.Member{testMember("Ada"), testMember("Grace")}, []model.Session{testSession(1, 6)})

	res, err := s.LoadAttendance(ctx, []model.Attendance{
		{SessionOrdinal: 1, MemberKey: "ada", Status: model.AttendYes},
	}, 0)
	if err != nil || res.Created != 1 {
		t.Fatalf("LoadAttendance() = %+v, %v", res, err)
	}

	got, err := s.Attendance(ctx, 1, "ada")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.AttendYes || got.SessionDate != "2025-01-06" {
		t.Errorf("attendance = %+v", got)
	}

	if _, err := s.Attendance(ctx, 1, "grace"); !errors.Is(err, ErrNotFound) {
		t.Errorf("grace attendance err = %v, want ErrNotFound", err)
	}
}

func TestLoadAttendance_UpdatesChangedStatus(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, []model.Member{testMember("Ada")}, []model.Session{testSession(1, 6)})

	rec := model.Attendance{SessionOrdinal: 1, MemberKey: "ada", Status: model.AttendMaybe}
	if _, err := s.LoadAttendance(ctx, []model.Attendance{rec}, 0); err != nil {
		t.Fatal(err)
	}
	rec.Status = model.AttendYes
	rec.Notes = "Boat assignment: [8] Knifton"
	res, err := s.LoadAttendance(ctx, []model.Attendance{rec}, 0)
	if err != nil || res.Updated != 1 {
		t.Fatalf("reload = %+v, %v; want 1 updated", res, err)
	}

	boats, err := s.BoatAssignments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(boats) != 1 || boats[0].Notes != rec.Notes {
		t.Errorf("boat assignments = %+v", boats)
	}
}

func TestLoadAttendance_PartialBatchResilience(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var members []model.Member
	for i := 1; i <= 50; i++ {
		members = append(members, testMember(fmt.Sprintf("member%02d", i)))
	}
	seed(t, s, members, []model.Session{testSession(1, 6)})

	var records []model.Attendance
	for i := 1; i <= 50; i++ {
		key := fmt.Sprintf("member%02d", i)
		if i == 27 {
			key = "not-on-roster"
		}
		records = append(records, model.Attendance{SessionOrdinal: 1, MemberKey: key, Status: model.AttendYes})
	}

	res, err := s.LoadAttendance(ctx, records, 50)
	if err != nil {
		t.Fatalf("LoadAttendance() error = %v", err)
	}
	if res.Created != 49 || res.Failed != 1 || res.Processed != 50 {
		t.Fatalf("result = %+v, want 49 created 1 failed", res)
	}
	if len(res.Failures) != 1 || res.Failures[0].Index != 26 || res.Failures[0].Key != "1/not-on-roster" {
		t.Errorf("failures = %+v", res.Failures)
	}
	if n, _ := s.Count(ctx, "attendance"); n != 49 {
		t.Errorf("attendance rows = %d, want 49", n)
	}
}

func TestLoadBatches_SavepointRollsBackPartialWrite(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, []model.Member{testMember("Ada")}, []model.Session{testSession(1, 6)})

	// Each record inserts a member and then an attendance row. The second
	// record's attendance row violates the foreign key on session_id, so its
	// member insert must be rolled back with it.
	type pair struct {
		member    string
		sessionID int64
	}
	upsert := func(ctx context.Context, tx *sql.Tx, p pair) (model.Outcome, error) {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO members (member_key, name, role, created_at, updated_at)
			VALUES (?, ?, 'rower', 'now', 'now')
		`, p.member, p.member)
		if err != nil {
			return model.OutcomeFailed, err
		}
		mid, _ := res.LastInsertId()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attendance (session_id, member_id, status, created_at, updated_at)
			VALUES (?, ?, 'Yes', 'now', 'now')
		`, p.sessionID, mid)
		if err != nil {
			return model.OutcomeFailed, err
		}
		return model.OutcomeCreated, nil
	}

	records := []pair{{"b", 1}, {"c", 999}, {"d", 1}}
	res, err := loadBatches(ctx, s, records, 10, func(p pair) string { return p.member }, upsert)
	if err != nil {
		t.Fatalf("loadBatches() error = %v", err)
	}
	if res.Created != 2 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 2 created 1 failed", res)
	}
	if _, err := s.Member(ctx, "c"); !errors.Is(err, ErrNotFound) {
		t.Errorf("member c survived rollback: err = %v", err)
	}
	if _, err := s.Member(ctx, "d"); err != nil {
		t.Errorf("member d missing: %v", err)
	}
}

func TestLoadBatches_PreservesOrderAcrossBatches(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var seen []int
	upsert := func(ctx context.Context, tx *sql.Tx, n int) (model.Outcome, error) {
		seen = append(seen, n)
		return model.OutcomeUnchanged, nil
	}
	records := []int{1, 2, 3, 4, 5, 6, 7}
	res, err := loadBatches(ctx, s, records, 3, func(n int) string { return fmt.Sprint(n) }, upsert)
	if err != nil {
		t.Fatal(err)
	}
	if res.Unchanged != 7 {
		t.Errorf("result = %+v", res)
	}
	for i, n := range seen {
		if n != i+1 {
			t.Fatalf("order = %v", seen)
		}
	}
}

func TestLoadBatches_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.LoadMembers(ctx, []model.Member{testMember("Ada")}, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLoadLineups_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, []model.Member{testMember("Ada")}, []model.Session{testSession(1, 6)})
	if _, err := s.LoadEquipment(ctx, []model.Equipment{
		{Name: "Knifton", Key: "knifton", Class: "8+", Status: model.StatusAvailable},
	}, 0); err != nil {
		t.Fatal(err)
	}

	l := model.Lineup{
		SessionOrdinal: 1,
		BoatName:       "Knifton",
		EquipmentKey:   "knifton",
		Headcount:      1,
		SeatCapacity:   9,
		TotalMassKg:    70,
		AvgMassKg:      7.777777,
		AvgAge:         30,
		Annotation:     "Under-assigned",
		Members:        []string{"ada"},
	}
	first, err := s.LoadLineups(ctx, []model.Lineup{l}, 0)
	if err != nil || first.Created != 1 {
		t.Fatalf("first = %+v, %v", first, err)
	}
	second, err := s.LoadLineups(ctx, []model.Lineup{l}, 0)
	if err != nil || second.Unchanged != 1 {
		t.Fatalf("second = %+v, %v", second, err)
	}

	got, err := s.Lineups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].AvgMassKg != 7.78 || got[0].Members[0] != "ada" {
		t.Errorf("lineups = %+v", got)
	}

	missing := l
	missing.EquipmentKey = "ghost"
	res, err := s.LoadLineups(ctx, []model.Lineup{missing}, 0)
	if err != nil || res.Failed != 1 {
		t.Fatalf("missing equipment = %+v, %v", res, err)
	}
	if !strings.Contains(res.Failures[0].Message, ErrMissingReference.Error()) {
		t.Errorf("failure message = %q", res.Failures[0].Message)
	}
}

func TestLoadLineups_RemovesUnassignedBoats(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, []model.Member{testMember("Ada")}, []model.Session{testSession(1, 6), testSession(2, 7)})
	if _, err := s.LoadEquipment(ctx, []model.Equipment{
		{Name: "Knifton", Key: "knifton", Class: "8+", Status: model.StatusAvailable},
		{Name: "Carson", Key: "carson", Class: "4+", Status: model.StatusAvailable},
	}, 0); err != nil {
		t.Fatal(err)
	}

	lineup := func(ordinal int, key string) model.Lineup {
		return model.Lineup{SessionOrdinal: ordinal, BoatName: key, EquipmentKey: key, Headcount: 1, SeatCapacity: 5, Members: []string{"ada"}}
	}
	first, err := s.LoadLineups(ctx, []model.Lineup{lineup(1, "knifton"), lineup(1, "carson"), lineup(2, "knifton")}, 0)
	if err != nil || first.Created != 3 || first.Removed != 0 {
		t.Fatalf("first = %+v, %v", first, err)
	}

	// Session 2 leaves the header; its lineup stays as history.
	if _, err := s.LoadSessions(ctx, []model.Session{testSession(1, 6)}, 0); err != nil {
		t.Fatal(err)
	}
	second, err := s.LoadLineups(ctx, []model.Lineup{lineup(1, "knifton")}, 0)
	if err != nil || second.Unchanged != 1 || second.Removed != 1 {
		t.Fatalf("second = %+v, %v", second, err)
	}

	got, err := s.Lineups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].EquipmentKey != "knifton" {
		t.Errorf("lineups = %+v", got)
	}
	n, err := s.Count(ctx, "lineups")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("stored lineups = %d, want 2", n)
	}
}

func TestLoadEquipment_UpdateOnStatusChange(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	boat := model.Equipment{Name: "Carson", Key: "carson", Class: "4x", Status: model.StatusAvailable, MinWeightKg: 60, MaxWeightKg: 80}
	if _, err := s.LoadEquipment(ctx, []model.Equipment{boat}, 0); err != nil {
		t.Fatal(err)
	}
	boat.Status = model.StatusDamaged
	res, err := s.LoadEquipment(ctx, []model.Equipment{boat}, 0)
	if err != nil || res.Updated != 1 {
		t.Fatalf("reload = %+v, %v", res, err)
	}
	got, err := s.Equipment(ctx, "carson")
	if err != nil {
		t.Fatal(err)
	}
	if got != boat {
		t.Errorf("equipment = %+v, want %+v", got, boat)
	}
}
