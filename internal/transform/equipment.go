package transform

import (
	"fmt"
	"strings"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/sheet"
	"github.com/roach88/rowsync/internal/source"
)

var equipmentFields = []sheet.Field{
	{Name: "name", Candidates: []string{"boat", "name"}, Required: true},
	{Name: "class", Candidates: []string{"type", "class"}},
	{Name: "status", Candidates: []string{"status", "condition"}},
	{Name: "min", Candidates: []string{"min"}},
	{Name: "max", Candidates: []string{"max"}},
}

// classNames maps free boat-type text to a class code. Longer phrases come
// first so "coxed four" wins over "four" and "double scull" over
// "scull".
var classNames = []struct {
	text  string
	class string
}{
	{"coxless four", "4-"},
	{"straight four", "4-"},
	{"coxed four", "4+"},
	{"coxless pair", "2-"},
	{"coxed pair", "2+"},
	{"octuple", "8x"},
	{"single", "1x"},
	{"double", "2x"},
	{"pair", "2-"},
	{"quad", "4x"},
	{"four", "4+"},
	{"eight", "8+"},
	{"scull", "1x"},
}

// NormalizeClass maps boat-type text such as "8+", "Eight" or "coxed four"
// to a class code.
func NormalizeClass(text string) (string, bool) {
	t := strings.ToLower(sheet.DisplayName(text))
	if t == "" {
		return "", false
	}
	compact := strings.ReplaceAll(t, " ", "")
	if _, ok := seatCapacity[compact]; ok {
		return compact, true
	}
	for _, c := range classNames {
		if strings.Contains(t, c.text) {
			return c.class, true
		}
	}
	return "", false
}

func statusOf(text string) (string, bool) {
	switch strings.ToLower(sheet.DisplayName(text)) {
	case "", "ok", "good", "active", "available":
		return model.StatusAvailable, true
	case "damaged", "broken", "repair", "needs repair", "in repair":
		return model.StatusDamaged, true
	case "retired", "sold", "out of service":
		return model.StatusRetired, true
	case "reserved", "private", "racing only":
		return model.StatusReserved, true
	}
	return "", false
}

// Equipment turns the equipment sheet into units. Unknown statuses are
// treated as available; inverted weight bounds reject the row.
func Equipment(g source.Grid) (pipeline.Rows[model.Equipment], error) {
	var out pipeline.Rows[model.Equipment]
	if g.Height() == 0 {
		return out, nil
	}
	header := g.Texts(0)
	cols, missing := sheet.Columns(header, equipmentFields)
	if len(missing) > 0 {
		return out, fmt.Errorf("equipment header is missing required column(s): %s", strings.Join(missing, ", "))
	}
	minPounds := unitIsPounds(header, cols.Index("min"))
	maxPounds := unitIsPounds(header, cols.Index("max"))

	seen := make(map[string]int)
	for r := 1; r < g.Height(); r++ {
		row := g.Texts(r)
		rowNum := r + 1
		name, _ := cols.Get(row, "name")
		name = sheet.DisplayName(name)
		if name == "" {
			out.Add(pipeline.Skip[model.Equipment]())
			continue
		}

		var warnings []pipeline.Warning
		warn := func(field, format string, args ...any) {
			warnings = append(warnings, pipeline.Warning{
				Entity:  string(model.EntityEquipment),
				Row:     rowNum,
				Column:  source.ColumnName(cols.Index(field)),
				Message: fmt.Sprintf(format, args...),
			})
		}

		e := model.Equipment{Name: name, Key: sheet.NormalizeName(name)}
		if first, dup := seen[e.Key]; dup {
			out.Add(pipeline.Reject[model.Equipment](pipeline.Warning{
				Entity:  string(model.EntityEquipment),
				Row:     rowNum,
				Message: fmt.Sprintf("duplicate boat %q; keeping row %d", name, first),
			}))
			continue
		}

		if v, ok := cols.Get(row, "class"); ok && v != "" {
			if class, ok := NormalizeClass(v); ok {
				e.Class = class
			} else {
				warn("class", "unrecognized boat type %q ignored", v)
			}
		}

		status, _ := cols.Get(row, "status")
		if s, ok := statusOf(status); ok {
			e.Status = s
		} else {
			e.Status = model.StatusAvailable
			warn("status", "unrecognized status %q treated as available", status)
		}

		if v, ok := cols.Get(row, "min"); ok && v != "" {
			kg, err := parseWeight(v, minPounds)
			if err != nil || kg < 0 {
				warn("min", "invalid minimum weight %q ignored", v)
			} else {
				e.MinWeightKg = kg
			}
		}
		if v, ok := cols.Get(row, "max"); ok && v != "" {
			kg, err := parseWeight(v, maxPounds)
			if err != nil || kg < 0 {
				warn("max", "invalid maximum weight %q ignored", v)
			} else {
				e.MaxWeightKg = kg
			}
		}
		if e.MaxWeightKg > 0 && e.MinWeightKg > e.MaxWeightKg {
			out.Add(pipeline.Reject[model.Equipment](pipeline.Warning{
				Entity:  string(model.EntityEquipment),
				Row:     rowNum,
				Message: fmt.Sprintf("boat %q has minimum weight %.2f above maximum %.2f", name, e.MinWeightKg, e.MaxWeightKg),
			}))
			continue
		}

		seen[e.Key] = rowNum
		out.Add(pipeline.Accept(e, warnings...))
	}
	return out, nil
}
