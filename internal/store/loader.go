package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/rowsync/internal/model"
)

// DefaultBatchSize is used when a caller passes a non-positive size.
const DefaultBatchSize = 50

// upsertFunc writes one record inside the batch transaction.
type upsertFunc[T any] func(ctx context.Context, tx *sql.Tx, rec T) (model.Outcome, error)

// loadBatches upserts records in order, batchSize at a time. Each batch runs
// in one transaction and each record under its own savepoint, so a record
// that fails is rolled back alone and the rest of the batch still commits.
//
// The returned error is reserved for failures of the batch machinery itself
// (begin, savepoint, commit, cancellation); tallies of committed batches are
// returned alongside it.
func loadBatches[T any](ctx context.Context, s *Store, records []T, batchSize int, key func(T) string, upsert upsertFunc[T]) (model.LoadResult, error) {
	var total model.LoadResult
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		res, err := loadBatch(ctx, s, records, start, end, key, upsert)
		if err != nil {
			return total, fmt.Errorf("load batch %d-%d: %w", start, end-1, err)
		}
		total.Merge(res)
	}
	return total, nil
}

func loadBatch[T any](ctx context.Context, s *Store, records []T, start, end int, key func(T) string, upsert upsertFunc[T]) (model.LoadResult, error) {
	var res model.LoadResult
	if err := ctx.Err(); err != nil {
		return res, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i := start; i < end; i++ {
		rec := records[i]
		if _, err := tx.ExecContext(ctx, "SAVEPOINT record"); err != nil {
			return res, fmt.Errorf("savepoint: %w", err)
		}

		outcome, err := upsert(ctx, tx, rec)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT record"); rbErr != nil {
				return res, fmt.Errorf("rollback to savepoint: %w", rbErr)
			}
			if _, relErr := tx.ExecContext(ctx, "RELEASE SAVEPOINT record"); relErr != nil {
				return res, fmt.Errorf("release savepoint: %w", relErr)
			}
			res.Fail(model.RecordFailure{Index: i, Key: key(rec), Message: err.Error()})
			continue
		}

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT record"); err != nil {
			return res, fmt.Errorf("release savepoint: %w", err)
		}
		res.Record(outcome)
	}

	if err := tx.Commit(); err != nil {
		return model.LoadResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// LoadMembers upserts roster members by member key.
func (s *Store) LoadMembers(ctx context.Context, members []model.Member, batchSize int) (model.LoadResult, error) {
	return loadBatches(ctx, s, members, batchSize, func(m model.Member) string { return m.Key }, s.upsertMember)
}

// LoadEquipment upserts equipment units by equipment key.
func (s *Store) LoadEquipment(ctx context.Context, units []model.Equipment, batchSize int) (model.LoadResult, error) {
	return loadBatches(ctx, s, units, batchSize, func(e model.Equipment) string { return e.Key }, s.upsertEquipment)
}

// LoadSessions upserts sessions by (date, start). Ordinals held by stored
// sessions that the incoming header places elsewhere, or not at all, are
// released first so each ordinal names exactly one session.
func (s *Store) LoadSessions(ctx context.Context, sessions []model.Session, batchSize int) (model.LoadResult, error) {
	if err := s.releaseOrdinals(ctx, sessions); err != nil {
		return model.LoadResult{}, err
	}
	return loadBatches(ctx, s, sessions, batchSize, sessionKey, s.upsertSession)
}

// LoadAttendance upserts attendance by (session ordinal, member key).
func (s *Store) LoadAttendance(ctx context.Context, records []model.Attendance, batchSize int) (model.LoadResult, error) {
	return loadBatches(ctx, s, records, batchSize, attendanceKey, s.upsertAttendance)
}

// LoadLineups upserts lineups by (session ordinal, equipment key), then
// removes stored lineups of sessions still in the header that the batch
// no longer contains. Lineups are rebuilt from current assignments, so a
// boat nobody is assigned to any more has no lineup.
func (s *Store) LoadLineups(ctx context.Context, lineups []model.Lineup, batchSize int) (model.LoadResult, error) {
	res, err := loadBatches(ctx, s, lineups, batchSize, lineupKey, s.upsertLineup)
	if err != nil {
		return res, err
	}
	removed, err := s.pruneLineups(ctx, lineups)
	res.Removed += removed
	return res, err
}

func sessionKey(ss model.Session) string {
	return ss.Date + " " + ss.Start
}

func attendanceKey(a model.Attendance) string {
	return fmt.Sprintf("%d/%s", a.SessionOrdinal, a.MemberKey)
}

func lineupKey(l model.Lineup) string {
	return fmt.Sprintf("%d/%s", l.SessionOrdinal, l.EquipmentKey)
}
