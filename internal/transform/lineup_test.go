package transform

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowsync/internal/model"
)

func rower(key string, age int, kg float64) model.Member {
	return model.Member{Name: key, Key: key, Role: model.RoleRower, Age: age, WeightKg: kg, Active: true}
}

func assigned(ordinal int, key, note string) model.Attendance {
	return model.Attendance{SessionOrdinal: ordinal, MemberKey: key, Status: model.AttendYes, Notes: note}
}

func TestLineupBuilder_UnderAssignedEight(t *testing.T) {
	var members []model.Member
	var assignments []model.Attendance
	for i := 1; i <= 7; i++ {
		key := fmt.Sprintf("r%d", i)
		members = append(members, rower(key, 30, 90))
		assignments = append(assignments, assigned(1, key, "Boat assignment: [8] Knifton"))
	}

	batch := LineupBuilder{Boats: BoatParser{Aliases: DefaultAliases}}.Build(LineupSource{
		Assignments: assignments,
		Members:     members,
		Equipment:   []model.Equipment{{Name: "Knifton", Key: "knifton", Class: "8+", Status: model.StatusAvailable}},
	})

	assert.Empty(t, batch.Seeds)
	require.Len(t, batch.Rows.Values, 1)
	l := batch.Rows.Values[0]
	assert.Equal(t, "Knifton", l.BoatName)
	assert.Equal(t, 7, l.Headcount)
	assert.Equal(t, 9, l.SeatCapacity)
	assert.Equal(t, 630.0, l.TotalMassKg)
	assert.Equal(t, 70.0, l.AvgMassKg, "average mass divides by seats, not headcount")
	assert.Equal(t, UnderAssigned, l.Annotation)
}

func TestLineupBuilder_MetricsExcludeCoxFromAge(t *testing.T) {
	cox := model.Member{Key: "cox", Role: model.RoleCox, Age: 60, WeightKg: 50}
	members := []model.Member{rower("a", 20, 70), rower("b", 30, 80), rower("c", 25, 75), rower("d", 35, 85), cox}
	var assignments []model.Attendance
	for _, m := range members {
		assignments = append(assignments, assigned(2, m.Key, "Boat assignment: [4] Carson"))
	}

	batch := LineupBuilder{}.Build(LineupSource{
		Assignments: assignments,
		Members:     members,
		Equipment:   []model.Equipment{{Name: "Carson", Key: "carson", Class: "4+", Status: model.StatusAvailable}},
	})

	require.Len(t, batch.Rows.Values, 1)
	l := batch.Rows.Values[0]
	assert.Equal(t, 5, l.Headcount)
	assert.Equal(t, 5, l.SeatCapacity)
	assert.Equal(t, 360.0, l.TotalMassKg)
	assert.Equal(t, 72.0, l.AvgMassKg)
	assert.Equal(t, 27.5, l.AvgAge)
	assert.Equal(t, "", l.Annotation)
	assert.Equal(t, []string{"a", "b", "c", "cox", "d"}, l.Members)
}

func TestLineupBuilder_SeedsGenericClass(t *testing.T) {
	members := []model.Member{rower("a", 20, 70), rower("b", 22, 72), rower("c", 24, 74)}
	assignments := []model.Attendance{
		assigned(1, "a", "Boat assignment: Doubles"),
		assigned(1, "b", "Boat assignment: Doubles"),
		assigned(1, "c", "Boat assignment: Doubles"),
		assigned(2, "a", "Boat assignment: Doubles"),
	}

	batch := LineupBuilder{}.Build(LineupSource{Assignments: assignments, Members: members})

	require.Len(t, batch.Seeds, 1)
	assert.Equal(t, model.Equipment{Name: "Doubles", Key: "doubles", Class: "2x", Status: model.StatusAvailable}, batch.Seeds[0])

	require.Len(t, batch.Rows.Values, 2)
	assert.Equal(t, OverAssigned, batch.Rows.Values[0].Annotation)
	assert.Equal(t, 2, batch.Rows.Values[0].SeatCapacity)
	assert.Equal(t, 2, batch.Rows.Values[1].SessionOrdinal)
	assert.Equal(t, UnderAssigned, batch.Rows.Values[1].Annotation)
}

func TestLineupBuilder_UsesExistingGenericUnit(t *testing.T) {
	batch := LineupBuilder{}.Build(LineupSource{
		Assignments: []model.Attendance{assigned(1, "a", "Boat assignment: Eights")},
		Members:     []model.Member{rower("a", 20, 70)},
		Equipment:   []model.Equipment{{Name: "Eights", Key: "eights", Class: "8+", Status: model.StatusAvailable}},
	})

	assert.Empty(t, batch.Seeds)
	require.Len(t, batch.Rows.Values, 1)
	assert.Equal(t, 9, batch.Rows.Values[0].SeatCapacity)
}

func TestLineupBuilder_UnknownClassFallsBackToRowerCount(t *testing.T) {
	batch := LineupBuilder{}.Build(LineupSource{
		Assignments: []model.Attendance{assigned(1, "a", "Boat assignment: [2] Mystery")},
		Members:     []model.Member{rower("a", 20, 70)},
		Equipment:   []model.Equipment{{Name: "Mystery", Key: "mystery", Status: model.StatusAvailable}},
	})

	require.Len(t, batch.Rows.Values, 1)
	assert.Equal(t, 2, batch.Rows.Values[0].SeatCapacity)
	assert.Equal(t, 35.0, batch.Rows.Values[0].AvgMassKg)
}

func TestLineupBuilder_DropsWithWarnings(t *testing.T) {
	batch := LineupBuilder{}.Build(LineupSource{
		Assignments: []model.Attendance{
			assigned(1, "a", "Boat assignment: somewhere"),
			assigned(1, "ghost", "Boat assignment: [8] Knifton"),
			assigned(1, "a", "Boat assignment: [8] Unknown Boat"),
			{SessionOrdinal: 1, MemberKey: "a", Status: model.AttendMaybe, Notes: "Boat assignment: Eights"},
		},
		Members:   []model.Member{rower("a", 20, 70)},
		Equipment: []model.Equipment{{Name: "Knifton", Key: "knifton", Class: "8+"}},
	})

	assert.Empty(t, batch.Rows.Values)
	assert.Empty(t, batch.Seeds)
	require.Len(t, batch.Rows.Warnings, 3)
	assert.Contains(t, batch.Rows.Warnings[0].Message, "unparseable")
	assert.Contains(t, batch.Rows.Warnings[1].Message, "unknown member")
	assert.Contains(t, batch.Rows.Warnings[2].Message, "no equipment named")
}
