package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/sheet"
	"github.com/roach88/rowsync/internal/source"
	"github.com/roach88/rowsync/internal/testutil"
)

var now = time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC)

func headerParser() sheet.HeaderParser {
	return sheet.DefaultHeaderParser(func() time.Time { return now })
}

// scheduleGrid is a header block with five session columns: two regular
// sessions, one with a placeholder time, one broken formula and one that
// repeats the first session.
func scheduleGrid(members ...[]any) source.Grid {
	rows := [][]any{
		testutil.Row("", "Mon Jan 6", "Tue Jan 7", "Wed Jan 8", "Thu Jan 9", "Fri Jan 10"),
		testutil.Row("", "6:00 AM", "5:30 PM", "TBD", "6 am", "6:00 AM"),
		testutil.Row("", "", "", "", "#ERROR!", "1/6/2025 6:00 AM"),
	}
	return testutil.Grid(append(rows, members...)...)
}

func TestSchedule_SessionsFromHeader(t *testing.T) {
	rows := Schedule(headerParser(), scheduleGrid(), 1)

	assert.Equal(t, []model.Session{
		{Ordinal: 1, Date: "2025-01-06", Start: "6:00 AM", End: "8:00 AM"},
		{Ordinal: 2, Date: "2025-01-07", Start: "5:30 PM", End: "7:30 PM"},
		{Ordinal: 3, Date: "2025-01-08", Start: "6:00 AM", End: "8:00 AM"},
	}, rows.Values)

	require.Len(t, rows.Warnings, 2)
	assert.Equal(t, "E", rows.Warnings[0].Column)
	assert.Contains(t, rows.Warnings[0].Message, "broken formula")
	assert.Equal(t, "F", rows.Warnings[1].Column)
	assert.Contains(t, rows.Warnings[1].Message, "keeping column B")
}

func TestSchedule_NoHeader(t *testing.T) {
	rows := Schedule(headerParser(), testutil.Grid(), 1)
	assert.Empty(t, rows.Values)
}

func TestSchedule_DuplicateColumnLeavesNoOrdinalGap(t *testing.T) {
	g := testutil.Grid(
		testutil.Row("", "Mon Jan 6", "Mon Jan 6", "Tue Jan 7"),
		testutil.Row("", "6:00 AM", "6 am", "5:30 PM"),
		testutil.Row("", "", "", ""),
	)

	rows := Schedule(headerParser(), g, 1)

	assert.Equal(t, []model.Session{
		{Ordinal: 1, Date: "2025-01-06", Start: "6:00 AM", End: "8:00 AM"},
		{Ordinal: 2, Date: "2025-01-07", Start: "5:30 PM", End: "7:30 PM"},
	}, rows.Values)
	require.Len(t, rows.Warnings, 1)
	assert.Equal(t, "C", rows.Warnings[0].Column)

	headers, _ := SessionColumns(headerParser(), g, 1)
	require.Len(t, headers, 2)
	assert.Equal(t, 3, headers[1].Column, "column D carries ordinal 2")
}
