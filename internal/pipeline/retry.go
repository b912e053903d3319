package pipeline

import (
	"context"
	"errors"
	"time"
)

// Policy bounds the exponential backoff around source reads.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultPolicy is three attempts starting at one second, doubling.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
	}
}

// Delay returns the backoff after failed attempt n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 || p.InitialDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay)
	for i := 1; i < n; i++ {
		d *= mult
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Sleeper waits between attempts. Tests inject one that records delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep implements Sleeper.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper sleeps on a real timer and wakes early on cancellation.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// Attempt records one call. Backoff is the wait that followed it, zero for
// the final attempt.
type Attempt struct {
	Number  int
	Err     error
	Backoff time.Duration
}

// Outcome is the typed result of a retried call.
type Outcome[T any] struct {
	Value    T
	Attempts []Attempt
	Err      error
}

// Count is the number of calls made.
func (o Outcome[T]) Count() int {
	return len(o.Attempts)
}

// TotalBackoff is the time spent waiting between calls.
func (o Outcome[T]) TotalBackoff() time.Duration {
	var d time.Duration
	for _, a := range o.Attempts {
		d += a.Backoff
	}
	return d
}

// permanentError marks a failure retrying cannot fix.
type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Retry stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a permanent error, the context
// ends, or the policy's attempts are used up. A call in flight is never
// interrupted; cancellation is observed between attempts.
func Retry[T any](ctx context.Context, p Policy, sleeper Sleeper, fn func(context.Context) (T, error)) Outcome[T] {
	if sleeper == nil {
		sleeper = TimerSleeper
	}
	var out Outcome[T]
	limit := p.attempts()
	for n := 1; n <= limit; n++ {
		v, err := fn(ctx)
		if err == nil {
			out.Value = v
			out.Attempts = append(out.Attempts, Attempt{Number: n})
			out.Err = nil
			return out
		}
		out.Err = err

		var perm permanentError
		if errors.As(err, &perm) || n == limit || ctx.Err() != nil {
			out.Attempts = append(out.Attempts, Attempt{Number: n, Err: err})
			return out
		}

		wait := p.Delay(n)
		out.Attempts = append(out.Attempts, Attempt{Number: n, Err: err, Backoff: wait})
		if serr := sleeper.Sleep(ctx, wait); serr != nil {
			out.Err = serr
			return out
		}
	}
	return out
}
