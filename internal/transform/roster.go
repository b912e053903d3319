package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/sheet"
	"github.com/roach88/rowsync/internal/source"
)

const lbToKg = 0.45359237

// fields checks single cell values against the same tags the record
// validators use, so a value that would fail the batch is dropped here.
var fields = validator.New()

var rosterFields = []sheet.Field{
	{Name: "name", Candidates: []string{"name", "member"}, Required: true},
	{Name: "position", Candidates: []string{"position", "role"}},
	{Name: "gender", Candidates: []string{"gender", "sex"}},
	{Name: "age", Candidates: []string{"age"}},
	{Name: "weight", Candidates: []string{"weight", "mass"}},
	{Name: "side", Candidates: []string{"side"}},
	{Name: "squad", Candidates: []string{"squad", "group", "team"}},
	{Name: "email", Candidates: []string{"email", "e-mail"}},
}

// Roster turns the roster sheet into members. Row 1 is the header; the
// name column is required, every other field is optional. Members always
// come out active: activity belongs to the attendance process.
func Roster(g source.Grid) (pipeline.Rows[model.Member], error) {
	var out pipeline.Rows[model.Member]
	if g.Height() == 0 {
		return out, nil
	}
	header := g.Texts(0)
	cols, missing := sheet.Columns(header, rosterFields)
	if len(missing) > 0 {
		return out, fmt.Errorf("roster header is missing required column(s): %s", strings.Join(missing, ", "))
	}
	pounds := unitIsPounds(header, cols.Index("weight"))

	firstRow := make(map[string]int)
	for r := 1; r < g.Height(); r++ {
		m, warnings, ok := rosterRow(g.Texts(r), r+1, cols, pounds)
		if !ok {
			out.Add(pipeline.Skip[model.Member]())
			continue
		}
		if first, dup := firstRow[m.Key]; dup {
			out.Add(pipeline.Reject[model.Member](pipeline.Warning{
				Entity:  string(model.EntityRoster),
				Row:     r + 1,
				Message: fmt.Sprintf("duplicate member %q; keeping row %d", m.Name, first),
			}))
			continue
		}
		firstRow[m.Key] = r + 1
		out.Add(pipeline.Accept(m, warnings...))
	}
	return out, nil
}

// rosterRow reads one member. It reports false for rows without a name.
func rosterRow(row []string, rowNum int, cols sheet.ColumnMap, pounds bool) (model.Member, []pipeline.Warning, bool) {
	name, _ := cols.Get(row, "name")
	name = sheet.DisplayName(name)
	if name == "" {
		return model.Member{}, nil, false
	}

	var warnings []pipeline.Warning
	warn := func(field, format string, args ...any) {
		warnings = append(warnings, pipeline.Warning{
			Entity:  string(model.EntityRoster),
			Row:     rowNum,
			Column:  source.ColumnName(cols.Index(field)),
			Message: fmt.Sprintf(format, args...),
		})
	}

	m := model.Member{
		Name:   name,
		Key:    sheet.NormalizeName(name),
		Active: true,
	}

	position, _ := cols.Get(row, "position")
	m.Role = roleOf(position)

	if v, ok := cols.Get(row, "gender"); ok && v != "" {
		if g, ok := genderOf(v); ok {
			m.Gender = g
		} else {
			warn("gender", "unrecognized gender %q ignored", v)
		}
	}

	if v, ok := cols.Get(row, "age"); ok && v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 1 || n > 120 {
			warn("age", "invalid age %q ignored", v)
		} else {
			m.Age = int(n)
		}
	}

	if v, ok := cols.Get(row, "weight"); ok && v != "" {
		kg, err := parseWeight(v, pounds)
		if err != nil || kg <= 0 || kg > 250 {
			warn("weight", "invalid weight %q ignored", v)
		} else {
			m.WeightKg = kg
		}
	}

	if v, ok := cols.Get(row, "side"); ok && v != "" {
		if s, ok := sideOf(v); ok {
			m.Side = s
		} else {
			warn("side", "unrecognized side %q ignored", v)
		}
	}

	m.Squad, _ = cols.Get(row, "squad")
	if v, ok := cols.Get(row, "email"); ok && v != "" {
		email := strings.ToLower(strings.TrimSpace(v))
		if err := fields.Var(email, "email"); err != nil {
			warn("email", "invalid email %q ignored", v)
		} else {
			m.Email = email
		}
	}

	return m, warnings, true
}

// roleOf derives a role from free position text.
func roleOf(position string) string {
	p := strings.ToLower(position)
	cox := strings.Contains(p, "cox")
	switch {
	case cox && strings.Contains(p, "row"):
		return model.RoleBoth
	case cox:
		return model.RoleCox
	default:
		return model.RoleRower
	}
}

func genderOf(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "m", "male", "man":
		return "M", true
	case "f", "female", "woman", "w":
		return "F", true
	case "x", "nb", "non-binary", "nonbinary", "other":
		return "X", true
	}
	return "", false
}

func sideOf(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "p", "port", "stroke":
		return "port", true
	case "s", "stbd", "starboard", "bow":
		return "starboard", true
	case "b", "both", "either", "bisweptual":
		return "both", true
	}
	return "", false
}

// unitIsPounds reports whether the header of column idx names pounds.
func unitIsPounds(header []string, idx int) bool {
	if idx < 0 || idx >= len(header) {
		return false
	}
	h := strings.ToLower(header[idx])
	return strings.Contains(h, "lb") || strings.Contains(h, "pound")
}

// parseWeight reads a weight, converting to kilograms when the column is in
// pounds. A trailing unit in the cell ("72kg", "160 lbs") overrides the
// column unit.
func parseWeight(v string, pounds bool) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	switch {
	case strings.HasSuffix(s, "kg"):
		s, pounds = strings.TrimSuffix(s, "kg"), false
	case strings.HasSuffix(s, "lbs"):
		s, pounds = strings.TrimSuffix(s, "lbs"), true
	case strings.HasSuffix(s, "lb"):
		s, pounds = strings.TrimSuffix(s, "lb"), true
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if pounds {
		n *= lbToKg
	}
	return model.Round2(n), nil
}
