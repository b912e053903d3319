package engine

import "time"

// Clock supplies wall time to a run: ledger timestamps, durations and the
// year assumed by session date labels.
//
// Production uses SystemClock; tests inject a clock that advances by a fixed
// step so every duration in a summary is deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
