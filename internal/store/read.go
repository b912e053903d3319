package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/rowsync/internal/model"
)

const memberSelect = `
	SELECT member_key, name, role, gender, COALESCE(age, 0), COALESCE(weight_kg, 0), side, squad, email, is_active
	FROM members`

const equipmentSelect = `
	SELECT equipment_key, name, class, status, COALESCE(min_weight_kg, 0), COALESCE(max_weight_kg, 0)
	FROM equipment`

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (model.Member, error) {
	var m model.Member
	var active int
	err := row.Scan(&m.Key, &m.Name, &m.Role, &m.Gender, &m.Age, &m.WeightKg, &m.Side, &m.Squad, &m.Email, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, ErrNotFound
	}
	if err != nil {
		return model.Member{}, err
	}
	m.Active = active != 0
	return m, nil
}

func scanEquipment(row scanner) (model.Equipment, error) {
	var e model.Equipment
	err := row.Scan(&e.Key, &e.Name, &e.Class, &e.Status, &e.MinWeightKg, &e.MaxWeightKg)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Equipment{}, ErrNotFound
	}
	return e, err
}

// Member returns the member with the given key, or ErrNotFound.
func (s *Store) Member(ctx context.Context, key string) (model.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, memberSelect+` WHERE member_key = ?`, key))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return m, fmt.Errorf("read member: %w", err)
	}
	return m, err
}

// Members returns every member ordered by key.
func (s *Store) Members(ctx context.Context) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, memberSelect+` ORDER BY member_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("read members: %w", err)
	}
	defer rows.Close()

	var out []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("read members: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Equipment returns the unit with the given key, or ErrNotFound.
func (s *Store) Equipment(ctx context.Context, key string) (model.Equipment, error) {
	e, err := scanEquipment(s.db.QueryRowContext(ctx, equipmentSelect+` WHERE equipment_key = ?`, key))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return e, fmt.Errorf("read equipment: %w", err)
	}
	return e, err
}

// EquipmentList returns every unit ordered by key.
func (s *Store) EquipmentList(ctx context.Context) ([]model.Equipment, error) {
	rows, err := s.db.QueryContext(ctx, equipmentSelect+` ORDER BY equipment_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("read equipment: %w", err)
	}
	defer rows.Close()

	var out []model.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("read equipment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SessionByOrdinal returns the session currently holding ordinal, or
// ErrNotFound.
func (s *Store) SessionByOrdinal(ctx context.Context, ordinal int) (model.Session, error) {
	ss := model.Session{Ordinal: ordinal}
	err := s.db.QueryRowContext(ctx, `
		SELECT session_date, start_time, end_time FROM sessions WHERE ordinal = ?
	`, ordinal).Scan(&ss.Date, &ss.Start, &ss.End)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("read session: %w", err)
	}
	return ss, nil
}

// Sessions returns every session ordered by date and start. Sessions no
// longer in the source header have ordinal 0.
func (s *Store) Sessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(ordinal, 0), session_date, start_time, end_time
		FROM sessions ORDER BY session_date ASC, start_time ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		var ss model.Session
		if err := rows.Scan(&ss.Ordinal, &ss.Date, &ss.Start, &ss.End); err != nil {
			return nil, fmt.Errorf("read sessions: %w", err)
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

const attendanceSelect = `
	SELECT s.ordinal, s.session_date, s.start_time, m.member_key, a.status, a.notes
	FROM attendance a
	JOIN sessions s ON s.id = a.session_id
	JOIN members m ON m.id = a.member_id`

func scanAttendance(row scanner) (model.Attendance, error) {
	var a model.Attendance
	err := row.Scan(&a.SessionOrdinal, &a.SessionDate, &a.SessionStart, &a.MemberKey, &a.Status, &a.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Attendance{}, ErrNotFound
	}
	return a, err
}

// Attendance returns the record for one member and session, or ErrNotFound
// when the source cell was empty.
func (s *Store) Attendance(ctx context.Context, ordinal int, memberKey string) (model.Attendance, error) {
	a, err := scanAttendance(s.db.QueryRowContext(ctx,
		attendanceSelect+` WHERE s.ordinal = ? AND m.member_key = ?`, ordinal, memberKey))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return a, fmt.Errorf("read attendance: %w", err)
	}
	return a, err
}

// BoatAssignments returns "Yes" records carrying a note, for lineup
// aggregation.
func (s *Store) BoatAssignments(ctx context.Context) ([]model.Attendance, error) {
	return s.attendanceWhere(ctx, `WHERE s.ordinal IS NOT NULL AND a.status = 'Yes' AND a.notes <> ''`)
}

func (s *Store) attendanceWhere(ctx context.Context, where string) ([]model.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, attendanceSelect+" "+where+` ORDER BY s.ordinal ASC, m.member_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("read attendance: %w", err)
	}
	defer rows.Close()

	var out []model.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("read attendance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Lineups returns lineups for sessions still in the header.
func (s *Store) Lineups(ctx context.Context) ([]model.Lineup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.ordinal, l.boat_name, e.equipment_key, l.headcount, l.seat_capacity,
		       l.total_mass_kg, l.avg_mass_kg, l.avg_age, l.annotation, l.members
		FROM lineups l
		JOIN sessions s ON s.id = l.session_id
		JOIN equipment e ON e.id = l.equipment_id
		WHERE s.ordinal IS NOT NULL
		ORDER BY s.ordinal ASC, e.equipment_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read lineups: %w", err)
	}
	defer rows.Close()

	var out []model.Lineup
	for rows.Next() {
		var l model.Lineup
		var members string
		if err := rows.Scan(&l.SessionOrdinal, &l.BoatName, &l.EquipmentKey, &l.Headcount, &l.SeatCapacity,
			&l.TotalMassKg, &l.AvgMassKg, &l.AvgAge, &l.Annotation, &members); err != nil {
			return nil, fmt.Errorf("read lineups: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &l.Members); err != nil {
			return nil, fmt.Errorf("read lineups: decode members: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// countTables are the tables Count accepts.
var countTables = map[string]bool{
	"members":        true,
	"equipment":      true,
	"sessions":       true,
	"attendance":     true,
	"lineups":        true,
	"sync_jobs":      true,
	"sync_job_steps": true,
}

// Count returns the number of rows in a known table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	if !countTables[table] {
		return 0, fmt.Errorf("count: unknown table %q", table)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
