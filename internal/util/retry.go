package util

import (
	"context"
	"time"
)

// maxShift caps the exponent so the doubled delay cannot overflow.
const maxShift = 30

// Backoff returns the delay before retry number attempt (counted from 1):
// base × 2^(attempt−1). Attempts below 1 are treated as 1.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > maxShift {
		shift = maxShift
	}
	return base << uint(shift)
}

// Retry calls fn up to maxAttempts times, sleeping Backoff(baseDelay, n)
// after the n-th failure. It returns nil on the first successful call, or
// the last error if all attempts fail. The function respects context
// cancellation between retries.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Don't sleep after the last failed attempt.
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(Backoff(baseDelay, attempt)):
			}
		}
	}

	return err
}
