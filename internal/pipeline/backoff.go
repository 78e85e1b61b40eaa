package pipeline

import (
	"context"
	"time"
)

// Backoff is an exponential retry schedule: the first wait is Initial and
// each following wait doubles, capped at Max. There is no attempt limit.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff waits 1s, 2s, 4s and so on up to 64s.
func DefaultBackoff() Backoff {
	return Backoff{Initial: time.Second, Max: 64 * time.Second}
}

// Next returns the wait that follows delay.
func (b Backoff) Next(delay time.Duration) time.Duration {
	delay *= 2
	if delay > b.Max || delay <= 0 {
		return b.Max
	}
	return delay
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry runs op until it succeeds or ctx is done, waiting between attempts on
// the schedule of b. onRetry, when set, sees each failure before its wait.
func (b Backoff) Retry(ctx context.Context, sleep SleepFunc, op func(context.Context) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	delay := b.Initial
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay = b.Next(delay)
	}
}
