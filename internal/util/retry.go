// Package util holds small helpers shared across components.
package util

import (
	"context"
	"fmt"
	"time"
)

// Retry calls fn up to attempts times, sleeping base, 2*base, 4*base ...
// between tries. fn returns (retryable, err); a non-retryable error stops
// immediately. Context cancellation aborts the wait.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func(attempt int) (bool, error)) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		retryable, err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable || attempt == attempts-1 {
			break
		}

		t := time.NewTimer(base << attempt)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("giving up after %d attempt(s): %w", attempts, lastErr)
}
