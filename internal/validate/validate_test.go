package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowsync/internal/model"
)

type fakeDirectory struct {
	sessions map[int]model.Session
	members  map[string]bool
	err      error
}

func (d fakeDirectory) Session(_ context.Context, ordinal int) (model.Session, bool, error) {
	if d.err != nil {
		return model.Session{}, false, d.err
	}
	s, ok := d.sessions[ordinal]
	return s, ok, nil
}

func (d fakeDirectory) MemberExists(_ context.Context, key string) (bool, error) {
	return d.members[key], nil
}

func TestMembers(t *testing.T) {
	c := New()

	ok := c.Members([]model.Member{
		{Name: "Ada", Key: "ada", Role: model.RoleRower, Gender: "F", Age: 36, Email: "ada@example.org", Active: true},
	}, 1)
	assert.True(t, ok.OK(), ok.Errors)

	bad := c.Members([]model.Member{
		{Name: "Ada", Key: "ada", Role: "captain", Email: "not-an-email"},
		{Name: "Ada", Key: "ada", Role: model.RoleRower},
	}, 2)
	require.Len(t, bad.Errors, 3)
	assert.Contains(t, bad.Errors[0], "Role fails oneof")
	assert.Contains(t, bad.Errors[1], "Email fails email")
	assert.Contains(t, bad.Errors[2], "appears more than once")
}

func TestMembers_EmptyBatchFromNonEmptySheet(t *testing.T) {
	c := New()

	assert.False(t, c.Members(nil, 4).OK())
	assert.True(t, c.Members(nil, 0).OK())
}

func TestEquipment(t *testing.T) {
	c := New()

	f := c.Equipment([]model.Equipment{
		{Name: "Knifton", Key: "knifton", Class: "8+", Status: model.StatusAvailable, MinWeightKg: 60, MaxWeightKg: 90},
		{Name: "Carson", Key: "carson", Status: model.StatusDamaged},
		{Name: "Bad", Key: "bad", Class: "canoe", Status: "lost"},
	}, 3)
	require.Len(t, f.Errors, 2)
	assert.Contains(t, f.Errors[0], `equipment "bad": Class`)
	assert.Contains(t, f.Errors[1], "Status")

	assert.False(t, c.Equipment(nil, 2).OK())
}

func TestSessions(t *testing.T) {
	c := New()

	assert.False(t, c.Sessions(nil).OK())

	ok := c.Sessions([]model.Session{{Ordinal: 1, Date: "2025-01-06", Start: "6:00 AM", End: "8:00 AM"}})
	assert.True(t, ok.OK(), ok.Errors)

	bad := c.Sessions([]model.Session{
		{Ordinal: 1, Date: "Jan 6", Start: "06:00", End: "8:00 AM"},
	})
	require.Len(t, bad.Errors, 2)
	assert.Contains(t, bad.Errors[0], "Date fails datetime")
	assert.Contains(t, bad.Errors[1], "Start fails clock")
}

func attendance(ordinal int, date, key string) model.Attendance {
	return model.Attendance{
		SessionOrdinal: ordinal,
		SessionDate:    date,
		SessionStart:   "6:00 AM",
		MemberKey:      key,
		Status:         model.AttendYes,
	}
}

func TestAttendance_References(t *testing.T) {
	c := New()
	dir := fakeDirectory{
		sessions: map[int]model.Session{
			1: {Ordinal: 1, Date: "2025-01-06", Start: "6:00 AM", End: "8:00 AM"},
		},
		members: map[string]bool{"ada": true},
	}

	kept, f, err := c.Attendance(context.Background(), []model.Attendance{
		attendance(1, "2025-01-06", "ada"),
		attendance(1, "2025-01-06", "ghost"),
		attendance(1, "2025-01-06", "ghost"),
	}, dir)
	require.NoError(t, err)
	assert.True(t, f.OK(), f.Errors)
	require.Len(t, kept, 1)
	assert.Equal(t, "ada", kept[0].MemberKey)
	require.Len(t, f.Warnings, 1, "one warning per unknown member")
	assert.Contains(t, f.Warnings[0].Message, `"ghost" is not on the roster`)
}

func TestAttendance_UnknownOrdinalIsError(t *testing.T) {
	c := New()
	dir := fakeDirectory{members: map[string]bool{"ada": true}}

	_, f, err := c.Attendance(context.Background(), []model.Attendance{
		attendance(3, "2025-01-08", "ada"),
		attendance(3, "2025-01-08", "ada"),
	}, dir)
	require.NoError(t, err)
	require.Len(t, f.Errors, 1)
	assert.Contains(t, f.Errors[0], "no session holds ordinal 3")
}

func TestAttendance_DriftGuard(t *testing.T) {
	c := New()
	dir := fakeDirectory{
		sessions: map[int]model.Session{
			1: {Ordinal: 1, Date: "2025-01-07", Start: "6:00 AM", End: "8:00 AM"},
		},
		members: map[string]bool{"ada": true},
	}

	_, f, err := c.Attendance(context.Background(), []model.Attendance{attendance(1, "2025-01-06", "ada")}, dir)
	require.NoError(t, err)
	require.Len(t, f.Errors, 1)
	assert.Equal(t, "session 1 is 2025-01-07 6:00 AM in the store but 2025-01-06 6:00 AM in the header", f.Errors[0])
}

func TestAttendance_DirectoryError(t *testing.T) {
	c := New()
	boom := errors.New("disk I/O error")

	_, _, err := c.Attendance(context.Background(), []model.Attendance{attendance(1, "2025-01-06", "ada")}, fakeDirectory{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestLineups(t *testing.T) {
	c := New()

	empty := c.Lineups(nil)
	assert.True(t, empty.OK())
	assert.Len(t, empty.Warnings, 1)

	bad := c.Lineups([]model.Lineup{{SessionOrdinal: 1, BoatName: "Knifton", EquipmentKey: "knifton", Headcount: 1, SeatCapacity: 9, Annotation: "Half-full", Members: []string{"ada"}}})
	require.Len(t, bad.Errors, 1)
	assert.Contains(t, bad.Errors[0], "Annotation")
}
