package sheet

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateLayout is how session dates are stored.
const DateLayout = "2006-01-02"

// ClockLayout is how session times are stored: 12-hour clock, no seconds.
const ClockLayout = "3:04 PM"

var (
	clock12 = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?(?::\d{2})?\s*([ap])\.?\s*m\b\.?`)
	clock24 = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2})?$`)

	monthDay = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// combinedLayouts are tried in order against combined date-time header cells.
var combinedLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"Monday, January 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
}

// dateOnlyLayouts carry no time of day.
var dateOnlyLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"Monday, January 2, 2006",
	"January 2, 2006",
}

// spreadsheetEpoch is day zero of spreadsheet serial dates.
var spreadsheetEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseClock parses a time of day such as "6:00 AM", "6am", "7:30 p.m." or
// "18:00" into minutes after midnight.
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if m := clock12.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min := 0
		if m[2] != "" {
			min, _ = strconv.Atoi(m[2])
		}
		if h < 1 || h > 12 || min > 59 {
			return 0, false
		}
		h %= 12
		if strings.EqualFold(m[3], "p") {
			h += 12
		}
		return h*60 + min, true
	}
	if m := clock24.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h > 23 || min > 59 {
			return 0, false
		}
		return h*60 + min, true
	}
	return 0, false
}

// FormatClock renders minutes after midnight as "3:04 PM".
func FormatClock(minutes int) string {
	return time.Date(2000, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format(ClockLayout)
}

// NormalizeClock reformats a time of day into ClockLayout.
func NormalizeClock(s string) (string, bool) {
	m, ok := ParseClock(s)
	if !ok {
		return "", false
	}
	return FormatClock(m), true
}

// IsMorning reports whether a ClockLayout time is before noon.
func IsMorning(clock string) bool {
	m, ok := ParseClock(clock)
	return ok && m < 12*60
}

// FromSerial converts a spreadsheet serial date-time into a time. The
// fractional part is the time of day, rounded to the minute.
func FromSerial(serial float64) time.Time {
	days := math.Floor(serial)
	minutes := math.Round((serial - days) * 24 * 60)
	return spreadsheetEpoch.AddDate(0, 0, int(days)).Add(time.Duration(minutes) * time.Minute)
}

// ParseDateTime parses a combined date-time text. hasTime is false when the
// text only carries a date.
func ParseDateTime(s string) (t time.Time, hasTime bool, ok bool) {
	s = DisplayName(s)
	for _, layout := range combinedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, true
		}
	}
	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, true
		}
	}
	return time.Time{}, false, false
}

// ParseDateLabel parses a label such as "Mon Jan 6" or "January 6th" in the
// given year. Labels without a month name are handed to a natural-language
// date parser anchored at January 1 of that year.
func ParseDateLabel(s string, year int) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := monthDay.FindStringSubmatch(s); m != nil {
		month := months[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if t.Month() != month || t.Day() != day {
			return time.Time{}, false
		}
		return t, true
	}
	if t, _, ok := ParseDateTime(s); ok {
		return t, true
	}
	return naturalDate(s, year)
}

func naturalDate(s string, year int) (time.Time, bool) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	base := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	r, err := w.Parse(s, base)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	t := r.Time.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}
