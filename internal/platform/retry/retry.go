package retry

import (
	"context"
	"time"
)

// Policy bounds a retry loop. Attempts counts the first call.
type Policy struct {
	Attempts int
	Backoff  time.Duration
	// Multiplier grows the backoff after each failed attempt; values < 1 keep it constant.
	Multiplier float64
}

// Once is a single retry after 200ms.
var Once = Policy{Attempts: 2, Backoff: 200 * time.Millisecond}

// Do calls fn until it succeeds, retryable reports false, attempts run out,
// or ctx is done. It returns the last error from fn.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, retryable func(error) bool) error {
	attempts := max(p.Attempts, 1)
	backoff := p.Backoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts || (retryable != nil && !retryable(lastErr)) {
			return lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}

		if p.Multiplier > 1 {
			backoff = time.Duration(float64(backoff) * p.Multiplier)
		}
	}

	return lastErr
}
