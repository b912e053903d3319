package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/rowsync/internal/model"
)

// ErrMissingReference is returned when a record points at a session, member
// or equipment unit that does not exist.
var ErrMissingReference = errors.New("missing reference")

// upsertMember inserts or updates a member by key. The activity flag is only
// written on insert; afterwards it belongs to SetMemberActive.
func (s *Store) upsertMember(ctx context.Context, tx *sql.Tx, m model.Member) (model.Outcome, error) {
	cur, err := scanMember(tx.QueryRowContext(ctx, memberSelect+` WHERE member_key = ?`, m.Key))
	if errors.Is(err, ErrNotFound) {
		now := s.stamp()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO members
			(member_key, name, role, gender, age, weight_kg, side, squad, email, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			m.Key, m.Name, m.Role, m.Gender, nullInt(m.Age), nullFloat(model.Round2(m.WeightKg)),
			m.Side, m.Squad, m.Email, boolInt(m.Active), now, now,
		)
		if err != nil {
			return model.OutcomeFailed, fmt.Errorf("insert member: %w", err)
		}
		return model.OutcomeCreated, nil
	}
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("find member: %w", err)
	}

	m.Active = cur.Active
	m.WeightKg = model.Round2(m.WeightKg)
	if cur == m {
		return model.OutcomeUnchanged, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE members
		SET name = ?, role = ?, gender = ?, age = ?, weight_kg = ?, side = ?, squad = ?, email = ?, updated_at = ?
		WHERE member_key = ?
	`,
		m.Name, m.Role, m.Gender, nullInt(m.Age), nullFloat(m.WeightKg), m.Side, m.Squad, m.Email, s.stamp(), m.Key,
	)
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("update member: %w", err)
	}
	return model.OutcomeUpdated, nil
}

func (s *Store) upsertEquipment(ctx context.Context, tx *sql.Tx, e model.Equipment) (model.Outcome, error) {
	e.MinWeightKg = model.Round2(e.MinWeightKg)
	e.MaxWeightKg = model.Round2(e.MaxWeightKg)

	cur, err := scanEquipment(tx.QueryRowContext(ctx, equipmentSelect+` WHERE equipment_key = ?`, e.Key))
	if errors.Is(err, ErrNotFound) {
		now := s.stamp()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO equipment
			(equipment_key, name, class, status, min_weight_kg, max_weight_kg, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			e.Key, e.Name, e.Class, e.Status, nullFloat(e.MinWeightKg), nullFloat(e.MaxWeightKg), now, now,
		)
		if err != nil {
			return model.OutcomeFailed, fmt.Errorf("insert equipment: %w", err)
		}
		return model.OutcomeCreated, nil
	}
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("find equipment: %w", err)
	}
	if cur == e {
		return model.OutcomeUnchanged, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE equipment
		SET name = ?, class = ?, status = ?, min_weight_kg = ?, max_weight_kg = ?, updated_at = ?
		WHERE equipment_key = ?
	`,
		e.Name, e.Class, e.Status, nullFloat(e.MinWeightKg), nullFloat(e.MaxWeightKg), s.stamp(), e.Key,
	)
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("update equipment: %w", err)
	}
	return model.OutcomeUpdated, nil
}

func (s *Store) upsertSession(ctx context.Context, tx *sql.Tx, ss model.Session) (model.Outcome, error) {
	var id int64
	var end string
	var ordinal sql.NullInt64
	err := tx.QueryRowContext(ctx, `
		SELECT id, end_time, ordinal FROM sessions WHERE session_date = ? AND start_time = ?
	`, ss.Date, ss.Start).Scan(&id, &end, &ordinal)
	if errors.Is(err, sql.ErrNoRows) {
		now := s.stamp()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (session_date, start_time, end_time, ordinal, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, ss.Date, ss.Start, ss.End, nullInt(ss.Ordinal), now, now)
		if err != nil {
			return model.OutcomeFailed, fmt.Errorf("insert session: %w", err)
		}
		return model.OutcomeCreated, nil
	}
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("find session: %w", err)
	}
	if end == ss.End && ordinal.Valid && int(ordinal.Int64) == ss.Ordinal {
		return model.OutcomeUnchanged, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET end_time = ?, ordinal = ?, updated_at = ? WHERE id = ?
	`, ss.End, nullInt(ss.Ordinal), s.stamp(), id)
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("update session: %w", err)
	}
	return model.OutcomeUpdated, nil
}

// releaseOrdinals clears the ordinal of every stored session that the
// incoming header does not place at that same ordinal.
func (s *Store) releaseOrdinals(ctx context.Context, incoming []model.Session) error {
	want := make(map[int]string, len(incoming))
	for _, ss := range incoming {
		want[ss.Ordinal] = sessionKey(ss)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_date, start_time, ordinal FROM sessions WHERE ordinal IS NOT NULL
	`)
	if err != nil {
		return fmt.Errorf("release ordinals: %w", err)
	}
	var stale []int64
	for rows.Next() {
		var id int64
		var ss model.Session
		if err := rows.Scan(&id, &ss.Date, &ss.Start, &ss.Ordinal); err != nil {
			rows.Close()
			return fmt.Errorf("release ordinals: %w", err)
		}
		if want[ss.Ordinal] != sessionKey(ss) {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("release ordinals: %w", err)
	}
	rows.Close()

	if len(stale) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("release ordinals: %w", err)
	}
	defer tx.Rollback()
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET ordinal = NULL, updated_at = ? WHERE id = ?`, s.stamp(), id); err != nil {
			return fmt.Errorf("release ordinals: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("release ordinals: %w", err)
	}
	return nil
}

func sessionIDByOrdinal(ctx context.Context, q queryer, ordinal int) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM sessions WHERE ordinal = ?`, ordinal).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: session ordinal %d", ErrMissingReference, ordinal)
	}
	return id, err
}

func memberID(ctx context.Context, q queryer, key string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM members WHERE member_key = ?`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: member %q", ErrMissingReference, key)
	}
	return id, err
}

func equipmentID(ctx context.Context, q queryer, key string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM equipment WHERE equipment_key = ?`, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: equipment %q", ErrMissingReference, key)
	}
	return id, err
}

func (s *Store) upsertAttendance(ctx context.Context, tx *sql.Tx, a model.Attendance) (model.Outcome, error) {
	sessionID, err := sessionIDByOrdinal(ctx, tx, a.SessionOrdinal)
	if err != nil {
		return model.OutcomeFailed, err
	}
	mid, err := memberID(ctx, tx, a.MemberKey)
	if err != nil {
		return model.OutcomeFailed, err
	}

	var id int64
	var status, notes string
	err = tx.QueryRowContext(ctx, `
		SELECT id, status, notes FROM attendance WHERE session_id = ? AND member_id = ?
	`, sessionID, mid).Scan(&id, &status, &notes)
	if errors.Is(err, sql.ErrNoRows) {
		now := s.stamp()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (session_id, member_id, status, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sessionID, mid, a.Status, a.Notes, now, now)
		if err != nil {
			return model.OutcomeFailed, fmt.Errorf("insert attendance: %w", err)
		}
		return model.OutcomeCreated, nil
	}
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("find attendance: %w", err)
	}
	if status == a.Status && notes == a.Notes {
		return model.OutcomeUnchanged, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE attendance SET status = ?, notes = ?, updated_at = ? WHERE id = ?
	`, a.Status, a.Notes, s.stamp(), id)
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("update attendance: %w", err)
	}
	return model.OutcomeUpdated, nil
}

func (s *Store) upsertLineup(ctx context.Context, tx *sql.Tx, l model.Lineup) (model.Outcome, error) {
	sessionID, err := sessionIDByOrdinal(ctx, tx, l.SessionOrdinal)
	if err != nil {
		return model.OutcomeFailed, err
	}
	eid, err := equipmentID(ctx, tx, l.EquipmentKey)
	if err != nil {
		return model.OutcomeFailed, err
	}

	members := slices.Clone(l.Members)
	slices.Sort(members)
	membersJSON, err := json.Marshal(members)
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("encode lineup members: %w", err)
	}
	l.TotalMassKg = model.Round2(l.TotalMassKg)
	l.AvgMassKg = model.Round2(l.AvgMassKg)
	l.AvgAge = model.Round2(l.AvgAge)

	var id int64
	var cur model.Lineup
	var curMembers string
	err = tx.QueryRowContext(ctx, `
		SELECT id, boat_name, headcount, seat_capacity, total_mass_kg, avg_mass_kg, avg_age, annotation, members
		FROM lineups WHERE session_id = ? AND equipment_id = ?
	`, sessionID, eid).Scan(&id, &cur.BoatName, &cur.Headcount, &cur.SeatCapacity,
		&cur.TotalMassKg, &cur.AvgMassKg, &cur.AvgAge, &cur.Annotation, &curMembers)
	if errors.Is(err, sql.ErrNoRows) {
		now := s.stamp()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO lineups
			(session_id, equipment_id, boat_name, headcount, seat_capacity, total_mass_kg, avg_mass_kg, avg_age, annotation, members, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, sessionID, eid, l.BoatName, l.Headcount, l.SeatCapacity, l.TotalMassKg, l.AvgMassKg,
			l.AvgAge, l.Annotation, string(membersJSON), now, now)
		if err != nil {
			return model.OutcomeFailed, fmt.Errorf("insert lineup: %w", err)
		}
		return model.OutcomeCreated, nil
	}
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("find lineup: %w", err)
	}
	if cur.BoatName == l.BoatName && cur.Headcount == l.Headcount && cur.SeatCapacity == l.SeatCapacity &&
		cur.TotalMassKg == l.TotalMassKg && cur.AvgMassKg == l.AvgMassKg && cur.AvgAge == l.AvgAge &&
		cur.Annotation == l.Annotation && curMembers == string(membersJSON) {
		return model.OutcomeUnchanged, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE lineups
		SET boat_name = ?, headcount = ?, seat_capacity = ?, total_mass_kg = ?, avg_mass_kg = ?, avg_age = ?,
		    annotation = ?, members = ?, updated_at = ?
		WHERE id = ?
	`, l.BoatName, l.Headcount, l.SeatCapacity, l.TotalMassKg, l.AvgMassKg, l.AvgAge, l.Annotation,
		string(membersJSON), s.stamp(), id)
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("update lineup: %w", err)
	}
	return model.OutcomeUpdated, nil
}

// pruneLineups deletes the lineups of ordinal-holding sessions whose
// (ordinal, equipment) pair is not in keep. Sessions that left the header
// keep their lineups as history.
func (s *Store) pruneLineups(ctx context.Context, keep []model.Lineup) (int, error) {
	want := make(map[string]bool, len(keep))
	for _, l := range keep {
		want[lineupKey(l)] = true
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, s.ordinal, e.equipment_key
		FROM lineups l
		JOIN sessions s ON s.id = l.session_id
		JOIN equipment e ON e.id = l.equipment_id
		WHERE s.ordinal IS NOT NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("prune lineups: %w", err)
	}
	var stale []int64
	for rows.Next() {
		var id int64
		var l model.Lineup
		if err := rows.Scan(&id, &l.SessionOrdinal, &l.EquipmentKey); err != nil {
			rows.Close()
			return 0, fmt.Errorf("prune lineups: %w", err)
		}
		if !want[lineupKey(l)] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("prune lineups: %w", err)
	}
	rows.Close()

	if len(stale) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune lineups: %w", err)
	}
	defer tx.Rollback()
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lineups WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("prune lineups: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune lineups: %w", err)
	}
	return len(stale), nil
}

// SetMemberActive sets a member's activity flag. It reports whether the
// flag actually changed, so repeated calls flip a member at most once.
func (s *Store) SetMemberActive(ctx context.Context, key string, active bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE members SET is_active = ?, updated_at = ? WHERE member_key = ? AND is_active <> ?
	`, boolInt(active), s.stamp(), key, boolInt(active))
	if err != nil {
		return false, fmt.Errorf("set member active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set member active: %w", err)
	}
	return n > 0, nil
}
