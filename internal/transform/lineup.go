package transform

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/rowsync/internal/model"
	"github.com/roach88/rowsync/internal/pipeline"
	"github.com/roach88/rowsync/internal/sheet"
)

// Lineup annotations.
const (
	OverAssigned  = "Over-assigned"
	UnderAssigned = "Under-assigned"
)

// LineupSource is what lineups are built from: the Yes attendance records
// carrying a boat note, and the members and equipment they refer to.
type LineupSource struct {
	Assignments []model.Attendance
	Members     []model.Member
	Equipment   []model.Equipment
}

// LineupBatch is the result of building lineups. Seeds are fallback
// equipment units for generic classes with no unit on file; they must be
// written before the lineups that reference them.
type LineupBatch struct {
	Seeds []model.Equipment
	Rows  pipeline.Rows[model.Lineup]
}

// LineupBuilder aggregates boat assignments into lineups.
type LineupBuilder struct {
	Boats BoatParser
}

type lineupGroup struct {
	ordinal int
	boat    string
	rowers  int
	unit    model.Equipment
	members []string
}

// Build groups assignments by (session, boat) and computes each lineup's
// metrics. Seat capacity comes from the unit's class, or from the rower
// count in the note when the class is unknown. Average mass divides by seat
// capacity, not headcount, so a short boat shows a low average.
func (b LineupBuilder) Build(src LineupSource) LineupBatch {
	var batch LineupBatch
	entity := string(model.EntityLineup)

	members := make(map[string]model.Member, len(src.Members))
	for _, m := range src.Members {
		members[m.Key] = m
	}
	units := make(map[string]model.Equipment, len(src.Equipment))
	for _, e := range src.Equipment {
		units[e.Key] = e
	}

	groups := make(map[string]*lineupGroup)
	var order []string
	for _, a := range src.Assignments {
		if a.Status != model.AttendYes || a.Notes == "" {
			continue
		}
		asg, ok := b.Boats.Parse(a.Notes)
		if !ok {
			batch.Rows.Warn(pipeline.Warning{
				Entity:  entity,
				Message: fmt.Sprintf("session %d: unparseable boat note %q for %s dropped", a.SessionOrdinal, a.Notes, a.MemberKey),
			})
			continue
		}
		if _, ok := members[a.MemberKey]; !ok {
			batch.Rows.Warn(pipeline.Warning{
				Entity:  entity,
				Message: fmt.Sprintf("session %d: unknown member %q in %s dropped", a.SessionOrdinal, a.MemberKey, asg.Boat),
			})
			continue
		}

		unitKey := sheet.NormalizeName(asg.Boat)
		unit, ok := units[unitKey]
		if !ok {
			if !asg.Generic {
				batch.Rows.Warn(pipeline.Warning{
					Entity:  entity,
					Message: fmt.Sprintf("session %d: no equipment named %q; assignment of %s dropped", a.SessionOrdinal, asg.Boat, a.MemberKey),
				})
				continue
			}
			unit = model.Equipment{
				Name:   asg.Boat,
				Key:    unitKey,
				Class:  asg.Class,
				Status: model.StatusAvailable,
			}
			units[unitKey] = unit
			batch.Seeds = append(batch.Seeds, unit)
		}

		gk := fmt.Sprintf("%d/%s", a.SessionOrdinal, unit.Key)
		g, ok := groups[gk]
		if !ok {
			g = &lineupGroup{ordinal: a.SessionOrdinal, boat: unit.Name, rowers: asg.Rowers, unit: unit}
			groups[gk] = g
			order = append(order, gk)
		}
		if !slices.Contains(g.members, a.MemberKey) {
			g.members = append(g.members, a.MemberKey)
		}
	}

	lineups := make([]model.Lineup, 0, len(order))
	for _, gk := range order {
		lineups = append(lineups, groups[gk].lineup(members))
	}
	slices.SortFunc(lineups, func(x, y model.Lineup) int {
		return cmp.Or(cmp.Compare(x.SessionOrdinal, y.SessionOrdinal), cmp.Compare(x.EquipmentKey, y.EquipmentKey))
	})
	for _, l := range lineups {
		batch.Rows.Add(pipeline.Accept(l))
	}
	return batch
}

func (g *lineupGroup) lineup(members map[string]model.Member) model.Lineup {
	capacity, ok := SeatCapacity(g.unit.Class)
	if !ok {
		capacity = g.rowers
	}

	keys := slices.Clone(g.members)
	slices.Sort(keys)

	var totalMass, ageSum float64
	var aged int
	for _, k := range keys {
		m := members[k]
		totalMass += m.WeightKg
		if !m.IsCox() && m.Age > 0 {
			ageSum += float64(m.Age)
			aged++
		}
	}

	l := model.Lineup{
		SessionOrdinal: g.ordinal,
		BoatName:       g.boat,
		EquipmentKey:   g.unit.Key,
		Headcount:      len(keys),
		SeatCapacity:   capacity,
		TotalMassKg:    model.Round2(totalMass),
		Members:        keys,
	}
	if capacity > 0 {
		l.AvgMassKg = model.Round2(totalMass / float64(capacity))
	}
	if aged > 0 {
		l.AvgAge = model.Round2(ageSum / float64(aged))
	}
	switch {
	case l.Headcount > capacity:
		l.Annotation = OverAssigned
	case l.Headcount < capacity:
		l.Annotation = UnderAssigned
	}
	return l
}
