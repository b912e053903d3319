package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/source"
)

func TestClassifyText(t *testing.T) {
	tests := []struct {
		raw       string
		status    string
		note      string
		uncertain bool
	}{
		{raw: "no", status: model.AttendNo},
		{raw: "Yes", status: model.AttendYes},
		{raw: " MAYBE ", status: model.AttendMaybe},
		{raw: "[8] Knifton", status: model.AttendYes, note: "Boat assignment: [8] Knifton"},
		{raw: "Boat assignment: [4] Carson", status: model.AttendYes, note: "Boat assignment: [4] Carson"},
		{raw: "Eights", status: model.AttendYes, note: "Boat assignment: Eights"},
		{raw: "in the quad", status: model.AttendYes, note: "Boat assignment: in the quad"},
		{raw: "4x", status: model.AttendYes, note: "Boat assignment: 4x"},
		{raw: "xyz", status: model.AttendNo, uncertain: true},
		{raw: "Eighteen", status: model.AttendNo, uncertain: true},
		{raw: "y", status: model.AttendNo, uncertain: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, ok := ClassifyText(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.status, c.Status)
			assert.Equal(t, tt.note, c.Note)
			assert.Equal(t, tt.uncertain, c.Uncertain)
		})
	}
}

func TestClassifyText_BlankCreatesNoRecord(t *testing.T) {
	_, ok := ClassifyText("   ")
	assert.False(t, ok)
}

func TestClassifyCell_SentinelsCreateNoRecord(t *testing.T) {
	for _, c := range []source.Cell{
		source.Empty,
		source.DefaultTokens.Text("TBD"),
		source.DefaultTokens.Text("#ERROR!"),
		source.DefaultTokens.Text("#REF!"),
	} {
		_, ok := ClassifyCell(c)
		assert.False(t, ok, "cell %+v", c)
	}

	c, ok := ClassifyCell(source.DefaultTokens.Text("[8] Knifton"))
	require.True(t, ok)
	assert.Equal(t, model.AttendYes, c.Status)
	assert.Contains(t, c.Note, "Knifton")
}

func TestBoatParser_Parse(t *testing.T) {
	p := BoatParser{Aliases: DefaultAliases}

	tests := []struct {
		note string
		want Assignment
	}{
		{"Boat assignment: [8] Knifton", Assignment{Boat: "Knifton", Rowers: 8}},
		{"Boat assignment: Eights", Assignment{Boat: "Eights", Rowers: 8, Generic: true, Class: "8+"}},
		{"Boat assignment: [4] Carson", Assignment{Boat: "Carson", Rowers: 4}},
		{"Boat assignment: [8] Kni", Assignment{Boat: "Knifton", Rowers: 8}},
		{"[ 2 ]  Ada's   Double", Assignment{Boat: "Ada's Double", Rowers: 2}},
		{"eight", Assignment{Boat: "Eights", Rowers: 8, Generic: true, Class: "8+"}},
		{"Quads", Assignment{Boat: "Quads", Rowers: 4, Generic: true, Class: "4x"}},
		{"4+", Assignment{Boat: "Fours", Rowers: 4, Generic: true, Class: "4+"}},
	}
	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			got, ok := p.Parse(tt.note)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoatParser_Unparseable(t *testing.T) {
	p := BoatParser{}
	for _, note := range []string{"", "Boat assignment:", "[0] Knifton", "in the quad", "[x] Carson"} {
		_, ok := p.Parse(note)
		assert.False(t, ok, "note %q", note)
	}
}

func TestSeatCapacity(t *testing.T) {
	eight, _ := SeatCapacity("8+")
	quad, _ := SeatCapacity("4x")
	coxedPair, _ := SeatCapacity("2+")

	assert.Equal(t, 9, eight)
	assert.Equal(t, 4, quad)
	assert.Equal(t, 3, coxedPair)

	_, ok := SeatCapacity("canoe")
	assert.False(t, ok)
}
