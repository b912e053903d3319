package model

import (
	"math"
	"strings"
)

// Entity names a synchronized record type. The value doubles as the CLI verb
// and the ledger step name.
type Entity string

const (
	EntityRoster     Entity = "roster"
	EntityEquipment  Entity = "equipment"
	EntitySchedule   Entity = "schedule"
	EntityAttendance Entity = "attendance"
	EntityLineup     Entity = "lineup"
)

// DependencyOrder is the fixed order entity processes run in.
// Later entities read rows written by earlier ones.
var DependencyOrder = []Entity{
	EntityRoster,
	EntityEquipment,
	EntitySchedule,
	EntityAttendance,
	EntityLineup,
}

// ParseEntity returns the entity named by s.
func ParseEntity(s string) (Entity, bool) {
	for _, e := range DependencyOrder {
		if string(e) == strings.ToLower(strings.TrimSpace(s)) {
			return e, true
		}
	}
	return "", false
}

// Member roles.
const (
	RoleRower = "rower"
	RoleCox   = "cox"
	RoleBoth  = "both"
)

// Member is a roster member keyed by normalized display name.
type Member struct {
	Name     string  `json:"name" validate:"required"`
	Key      string  `json:"key" validate:"required"`
	Role     string  `json:"role" validate:"required,oneof=rower cox both"`
	Gender   string  `json:"gender,omitempty" validate:"omitempty,oneof=M F X"`
	Age      int     `json:"age,omitempty" validate:"omitempty,min=1,max=120"`
	WeightKg float64 `json:"weight_kg,omitempty" validate:"omitempty,gt=0,lte=250"`
	Side     string  `json:"side,omitempty" validate:"omitempty,oneof=port starboard both"`
	Squad    string  `json:"squad,omitempty"`
	Email    string  `json:"email,omitempty" validate:"omitempty,email"`
	Active   bool    `json:"active"`
}

// IsCox reports whether the member only steers.
func (m Member) IsCox() bool {
	return m.Role == RoleCox
}

// Equipment statuses.
const (
	StatusAvailable = "available"
	StatusDamaged   = "damaged"
	StatusRetired   = "retired"
	StatusReserved  = "reserved"
)

// Equipment is a boat (or other unit) keyed by normalized name.
type Equipment struct {
	Name        string  `json:"name" validate:"required"`
	Key         string  `json:"key" validate:"required"`
	Class       string  `json:"class,omitempty" validate:"omitempty,oneof=1x 2x 2- 2+ 4x 4- 4+ 8+ 8x"`
	Status      string  `json:"status" validate:"required,oneof=available damaged retired reserved"`
	MinWeightKg float64 `json:"min_weight_kg,omitempty" validate:"gte=0"`
	MaxWeightKg float64 `json:"max_weight_kg,omitempty" validate:"omitempty,gtefield=MinWeightKg"`
}

// Session is a scheduled outing. The natural key is (Date, Start); Ordinal is
// the position of its column in the source header block.
type Session struct {
	Ordinal int    `json:"ordinal" validate:"gte=1"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Start   string `json:"start" validate:"required,clock"`
	End     string `json:"end" validate:"required,clock"`
}

// SameSlot reports whether two sessions share a natural key.
func (s Session) SameSlot(o Session) bool {
	return s.Date == o.Date && s.Start == o.Start
}

// Attendance statuses.
const (
	AttendYes   = "Yes"
	AttendNo    = "No"
	AttendMaybe = "Maybe"
)

// Attendance is one member's answer for one session, keyed by
// (SessionOrdinal, MemberKey). SessionDate and SessionStart echo the header
// the record was read under and are not stored.
type Attendance struct {
	SessionOrdinal int    `json:"session_ordinal" validate:"gte=1"`
	SessionDate    string `json:"session_date"`
	SessionStart   string `json:"session_start"`
	MemberKey      string `json:"member_key" validate:"required"`
	Status         string `json:"status" validate:"required,oneof=Yes No Maybe"`
	Notes          string `json:"notes,omitempty"`
}

// Lineup is the aggregate of every member assigned to one boat in one
// session, keyed by (SessionOrdinal, EquipmentKey).
type Lineup struct {
	SessionOrdinal int      `json:"session_ordinal" validate:"gte=1"`
	BoatName       string   `json:"boat_name" validate:"required"`
	EquipmentKey   string   `json:"equipment_key" validate:"required"`
	Headcount      int      `json:"headcount" validate:"gte=1"`
	SeatCapacity   int      `json:"seat_capacity" validate:"gte=1"`
	TotalMassKg    float64  `json:"total_mass_kg" validate:"gte=0"`
	AvgMassKg      float64  `json:"avg_mass_kg" validate:"gte=0"`
	AvgAge         float64  `json:"avg_age" validate:"gte=0"`
	Annotation     string   `json:"annotation,omitempty" validate:"omitempty,oneof=Over-assigned Under-assigned"`
	Members        []string `json:"members" validate:"required,min=1"`
}

// Round2 rounds to two decimals so derived metrics compare stably between runs.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
