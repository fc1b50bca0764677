// Where: cli/internal/lambdasvc/retry.go
// What: Bounded retry for idempotent read calls.
// Why: Throttled reads are safe to retry; mutations never are.
package lambdasvc

import (
	"context"
	"time"
)

type readRetrier struct {
	attempts int
	delay    time.Duration
	sleep    func(context.Context, time.Duration) error
}

func defaultReadRetrier() readRetrier {
	return readRetrier{attempts: 3, delay: 250 * time.Millisecond, sleep: sleepCtx}
}

// do runs fn, retrying only throttling faults. The delay doubles between
// attempts; any other failure returns immediately.
func (r readRetrier) do(ctx context.Context, fn func(context.Context) error) error {
	attempts := r.attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := r.delay

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
			delay *= 2
		}
		err = fn(ctx)
		if err == nil || !IsKind(err, KindThrottled) {
			return err
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
