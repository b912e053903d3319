package transform

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/rowsync/internal/sheet"
)

// DefaultAliases corrects boat names truncated in older sheets.
var DefaultAliases = map[string]string{
	"Kni": "Knifton",
}

// GenericClass is a boat class named on the grid without a specific boat.
type GenericClass struct {
	Name   string
	Class  string
	Rowers int
}

var genericClasses = []GenericClass{
	{Name: "Singles", Class: "1x", Rowers: 1},
	{Name: "Doubles", Class: "2x", Rowers: 2},
	{Name: "Pairs", Class: "2-", Rowers: 2},
	{Name: "Quads", Class: "4x", Rowers: 4},
	{Name: "Fours", Class: "4+", Rowers: 4},
	{Name: "Eights", Class: "8+", Rowers: 8},
}

var specificBoat = regexp.MustCompile(`^\[\s*(\d+)\s*\]\s*(.+)$`)

// Assignment is a parsed boat-assignment note.
type Assignment struct {
	// Boat is the resolved boat name, or the class name for generic
	// assignments.
	Boat string

	// Rowers is the rower count the note implies, not the seat count.
	Rowers int

	// Generic is set for class-only assignments; Class is then the
	// class code.
	Generic bool
	Class   string
}

// BoatParser reads boat-assignment notes.
type BoatParser struct {
	// Aliases maps known-bad boat names to the real ones. Matching is
	// case-insensitive.
	Aliases map[string]string
}

// Parse reads note in either form:
//
//	[8] Knifton    a specific boat and its rower count
//	Eights         a class without a named boat
//
// A leading "Boat assignment:" is ignored.
func (p BoatParser) Parse(note string) (Assignment, bool) {
	text := stripBoatPrefix(sheet.DisplayName(note))
	if text == "" {
		return Assignment{}, false
	}

	if m := specificBoat.FindStringSubmatch(text); m != nil {
		rowers, err := strconv.Atoi(m[1])
		if err != nil || rowers < 1 {
			return Assignment{}, false
		}
		return Assignment{Boat: p.resolve(m[2]), Rowers: rowers}, true
	}

	if g, ok := LookupGeneric(text); ok {
		return Assignment{Boat: g.Name, Rowers: g.Rowers, Generic: true, Class: g.Class}, true
	}
	return Assignment{}, false
}

func (p BoatParser) resolve(name string) string {
	name = sheet.DisplayName(name)
	for alias, full := range p.Aliases {
		if strings.EqualFold(alias, name) {
			return full
		}
	}
	return name
}

// LookupGeneric matches a class word ("eights", "Eight", "8+") to its
// generic class.
func LookupGeneric(text string) (GenericClass, bool) {
	word := strings.ToLower(strings.TrimSpace(text))
	for _, g := range genericClasses {
		plural := strings.ToLower(g.Name)
		if word == plural || word == strings.TrimSuffix(plural, "s") || word == g.Class {
			return g, true
		}
	}
	return GenericClass{}, false
}
