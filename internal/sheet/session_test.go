package sheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowsync/internal/source"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func cell(v any) source.Cell {
	return source.DefaultTokens.Classify(v)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"6:00 AM", "6:00 AM", true},
		{"6am", "6:00 AM", true},
		{"7:30 p.m.", "7:30 PM", true},
		{"12:15 PM", "12:15 PM", true},
		{"12:00 am", "12:00 AM", true},
		{"18:00", "6:00 PM", true},
		{"Practice 5:45 pm", "5:45 PM", true},
		{"13:00 PM", "", false},
		{"noon", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeClock(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDateLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jan 6", "2025-01-06"},
		{"Mon Jan 6", "2025-01-06"},
		{"January 6th", "2025-01-06"},
		{"Sept. 14", "2025-09-14"},
		{"1/6/2024", "2024-01-06"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDateLabel(tt.in, 2025)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Format(DateLayout))
		})
	}

	_, ok := ParseDateLabel("Feb 30", 2025)
	assert.False(t, ok)
	_, ok = ParseDateLabel("", 2025)
	assert.False(t, ok)
}

func TestFromSerial(t *testing.T) {
	// 45663 is 2025-01-06; .25 of a day is 6:00.
	got := FromSerial(45663.25)
	assert.Equal(t, "2025-01-06 6:00 AM", got.Format("2006-01-02 3:04 PM"))
}

func TestParseColumnFallbackChain(t *testing.T) {
	p := DefaultHeaderParser(fixedNow)

	tests := []struct {
		name                      string
		dateLabel, time, combined any
		want                      SessionHeader
		ok                        bool
	}{
		{
			name:      "error sentinel skips even with good labels",
			dateLabel: "Jan 6", time: "6:00 AM", combined: "#ERROR!",
			ok: false,
		},
		{
			name:      "combined date-time wins",
			dateLabel: "Jan 7", time: "5:00 PM", combined: "1/6/2025 6:00:00",
			want: SessionHeader{Date: "2025-01-06", Start: "6:00 AM", End: "8:00 AM"},
			ok:   true,
		},
		{
			name:      "combined serial number",
			dateLabel: nil, time: nil, combined: 45663.75,
			want: SessionHeader{Date: "2025-01-06", Start: "6:00 PM", End: "7:30 PM"},
			ok:   true,
		},
		{
			name:      "placeholder combined falls back to labels",
			dateLabel: "Tue Jan 7", time: "5:30 PM", combined: "TBD",
			want: SessionHeader{Date: "2025-01-07", Start: "5:30 PM", End: "7:30 PM"},
			ok:   true,
		},
		{
			name:      "unparseable combined falls back to labels",
			dateLabel: "Jan 8", time: "6 am", combined: "see coach",
			want: SessionHeader{Date: "2025-01-08", Start: "6:00 AM", End: "8:00 AM"},
			ok:   true,
		},
		{
			name:      "placeholder time gets default",
			dateLabel: "Jan 9", time: "TBD", combined: nil,
			want: SessionHeader{Date: "2025-01-09", Start: "6:00 AM", End: "8:00 AM"},
			ok:   true,
		},
		{
			name:      "missing time gets default",
			dateLabel: "Jan 10", time: nil, combined: nil,
			want: SessionHeader{Date: "2025-01-10", Start: "6:00 AM", End: "8:00 AM"},
			ok:   true,
		},
		{
			name:      "date-only combined takes time label",
			dateLabel: nil, time: "4:00 PM", combined: "1/11/2025",
			want: SessionHeader{Date: "2025-01-11", Start: "4:00 PM", End: "7:30 PM"},
			ok:   true,
		},
		{
			name:      "nothing resolvable",
			dateLabel: "Coach choice", time: "6:00 AM", combined: nil,
			ok: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason, ok := p.ParseColumn(cell(tt.dateLabel), cell(tt.time), cell(tt.combined))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
				assert.Empty(t, reason)
			} else {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestParseAssignsOrdinalsToAcceptedColumns(t *testing.T) {
	p := DefaultHeaderParser(fixedNow)
	g := source.FromValues(source.DefaultTokens, [][]any{
		{"Name", "Jan 6", "Jan 7", "Jan 8", nil, "Jan 9"},
		{nil, "6:00 AM", "6:00 AM", "5:30 PM", nil, "TBD"},
		{nil, nil, "#ERROR!", nil, nil, nil},
	})

	sessions, skipped := p.Parse(g, 1)
	require.Len(t, sessions, 3)
	require.Len(t, skipped, 1)

	assert.Equal(t, 2, skipped[0].Column)
	assert.Equal(t, "column C: broken formula in date-time cell", skipped[0].String())

	assert.Equal(t, SessionHeader{Ordinal: 1, Column: 1, Date: "2025-01-06", Start: "6:00 AM", End: "8:00 AM"}, sessions[0])
	assert.Equal(t, SessionHeader{Ordinal: 2, Column: 3, Date: "2025-01-08", Start: "5:30 PM", End: "7:30 PM"}, sessions[1])
	assert.Equal(t, SessionHeader{Ordinal: 3, Column: 5, Date: "2025-01-09", Start: "6:00 AM", End: "8:00 AM"}, sessions[2])
}
