package transform

import (
	"regexp"
	"strings"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/sheet"
	"github.com/roach88/rowsync/internal/source"
)

// BoatNotePrefix starts every note that records a boat assignment.
const BoatNotePrefix = "Boat assignment: "

var (
	// seatPrefix matches a bracketed seat count such as "[8] Knifton".
	seatPrefix = regexp.MustCompile(`^\[\s*\d+\s*\]`)

	// classWord matches the boat class names used on the attendance grid,
	// as whole words.
	classWord = regexp.MustCompile(`(?i)(^|[^a-z0-9])(singles?|doubles?|pairs?|quads?|fours?|eights?)([^a-z0-9]|$)`)

	// classCode matches class shorthands like "8+" or "4x" standing alone.
	classCode = regexp.MustCompile(`(?i)(^|\s)[1248][x+-](\s|$)`)
)

// Classification is the reading of one attendance cell.
type Classification struct {
	Status string
	Note   string

	// Uncertain is set when the cell text matched nothing and the status
	// fell back to No.
	Uncertain bool
}

// ClassifyCell reads an attendance cell. It reports false when the cell
// must not produce a record: blank cells, placeholders and broken formulas.
func ClassifyCell(c source.Cell) (Classification, bool) {
	switch c.Kind {
	case source.KindEmpty, source.KindPlaceholder, source.KindError:
		return Classification{}, false
	}
	return ClassifyText(c.Text)
}

// ClassifyText applies the attendance rules to raw text, in order:
//
//	blank                        no record
//	"yes" / "no" / "maybe"       that status, any case
//	a boat assignment            Yes, with the text kept as a note
//	anything else                No, flagged uncertain
func ClassifyText(raw string) (Classification, bool) {
	text := sheet.DisplayName(raw)
	if text == "" {
		return Classification{}, false
	}

	switch strings.ToLower(text) {
	case "yes":
		return Classification{Status: model.AttendYes}, true
	case "no":
		return Classification{Status: model.AttendNo}, true
	case "maybe":
		return Classification{Status: model.AttendMaybe}, true
	}

	if isBoatAssignment(text) {
		return Classification{Status: model.AttendYes, Note: boatNote(text)}, true
	}
	return Classification{Status: model.AttendNo, Uncertain: true}, true
}

func isBoatAssignment(text string) bool {
	body := stripBoatPrefix(text)
	return seatPrefix.MatchString(body) || classWord.MatchString(body) || classCode.MatchString(body)
}

func boatNote(text string) string {
	return BoatNotePrefix + stripBoatPrefix(text)
}

// stripBoatPrefix removes a leading "Boat assignment:" in any case.
func stripBoatPrefix(text string) string {
	label := strings.TrimSpace(BoatNotePrefix)
	if len(text) >= len(label) && strings.EqualFold(text[:len(label)], label) {
		return strings.TrimSpace(text[len(label):])
	}
	return text
}
