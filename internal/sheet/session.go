package sheet

import (
	"fmt"
	"time"

	"github.com/roach88/rowsync/internal/source"
)

// HeaderRows is the height of the session header block: date label, time
// label, combined date-time.
const HeaderRows = 3

// SessionHeader is one resolved header column.
type SessionHeader struct {
	Ordinal int
	Column  int
	Date    string
	Start   string
	End     string
}

// SkippedColumn records a header column that produced no session.
type SkippedColumn struct {
	Column int
	Reason string
}

func (s SkippedColumn) String() string {
	return fmt.Sprintf("column %s: %s", source.ColumnName(s.Column), s.Reason)
}

// HeaderParser turns the three-row header block into sessions.
type HeaderParser struct {
	Tokens      source.Tokens
	DefaultTime string
	MorningEnd  string
	EveningEnd  string

	// Now supplies the year for date labels that omit it.
	Now func() time.Time
}

// DefaultHeaderParser returns a parser with the club's standard times.
func DefaultHeaderParser(now func() time.Time) HeaderParser {
	return HeaderParser{
		Tokens:      source.DefaultTokens,
		DefaultTime: "6:00 AM",
		MorningEnd:  "8:00 AM",
		EveningEnd:  "7:30 PM",
		Now:         now,
	}
}

// Parse resolves every column from firstCol onwards. Ordinals count accepted
// columns only, left to right, starting at 1.
func (p HeaderParser) Parse(g source.Grid, firstCol int) ([]SessionHeader, []SkippedColumn) {
	var sessions []SessionHeader
	var skipped []SkippedColumn
	for col := firstCol; col < g.Width(); col++ {
		dateLabel, timeLabel, combined := g.Cell(0, col), g.Cell(1, col), g.Cell(2, col)
		if dateLabel.IsBlank() && timeLabel.IsBlank() && combined.IsBlank() {
			continue
		}
		h, reason, ok := p.ParseColumn(dateLabel, timeLabel, combined)
		if !ok {
			skipped = append(skipped, SkippedColumn{Column: col, Reason: reason})
			continue
		}
		h.Column = col
		h.Ordinal = len(sessions) + 1
		sessions = append(sessions, h)
	}
	return sessions, skipped
}

// ParseColumn resolves one header column. The fallback chain is:
//  1. an error sentinel in the combined cell skips the column
//  2. a parseable combined cell supplies date and time
//  3. otherwise the date label and time label are parsed separately
//  4. a missing or placeholder time becomes DefaultTime
//  5. the end time follows from whether the start is AM or PM
func (p HeaderParser) ParseColumn(dateLabel, timeLabel, combined source.Cell) (SessionHeader, string, bool) {
	if combined.Kind == source.KindError {
		return SessionHeader{}, "broken formula in date-time cell", false
	}

	var date time.Time
	var start string
	haveDate := false

	if combined.Kind != source.KindEmpty && combined.Kind != source.KindPlaceholder {
		if t, hasTime, ok := cellDateTime(combined); ok {
			date, haveDate = t, true
			if hasTime {
				start = t.Format(ClockLayout)
			}
		}
	}

	if !haveDate {
		t, ok := p.labelDate(dateLabel)
		if !ok {
			return SessionHeader{}, "no parseable date", false
		}
		date, haveDate = t, true
	}

	if start == "" && timeLabel.Kind != source.KindPlaceholder && timeLabel.Kind != source.KindError {
		if timeLabel.Kind == source.KindNumber && timeLabel.Number < 1 {
			start = FromSerial(timeLabel.Number).Format(ClockLayout)
		} else if clock, ok := NormalizeClock(timeLabel.Text); ok {
			start = clock
		}
	}
	if start == "" {
		start = p.DefaultTime
		if clock, ok := NormalizeClock(start); ok {
			start = clock
		}
	}

	end := p.EveningEnd
	if IsMorning(start) {
		end = p.MorningEnd
	}

	return SessionHeader{
		Date:  date.Format(DateLayout),
		Start: start,
		End:   end,
	}, "", true
}

func (p HeaderParser) labelDate(c source.Cell) (time.Time, bool) {
	switch c.Kind {
	case source.KindDate:
		return c.Time, true
	case source.KindNumber:
		return FromSerial(c.Number), true
	case source.KindString:
		return ParseDateLabel(c.Text, p.year())
	}
	return time.Time{}, false
}

func (p HeaderParser) year() int {
	if p.Now == nil {
		return time.Now().Year()
	}
	return p.Now().Year()
}

func cellDateTime(c source.Cell) (time.Time, bool, bool) {
	switch c.Kind {
	case source.KindDate:
		return c.Time, c.Time.Hour() != 0 || c.Time.Minute() != 0, true
	case source.KindNumber:
		t := FromSerial(c.Number)
		return t, c.Number != float64(int64(c.Number)), true
	case source.KindString:
		return ParseDateTime(c.Text)
	}
	return time.Time{}, false, false
}
