// Package utils holds small helpers shared by the API clients.
package utils

import (
	"context"
	"time"
)

// maxShift keeps Backoff from overflowing time.Duration.
const maxShift = 30

var sleep = time.Sleep

// WaitFor pauses for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Backoff returns the exponential pause before retry attempt n, starting at
// 1: base, 2*base, 4*base and so on.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > maxShift {
		shift = maxShift
	}
	return base * time.Duration(1<<shift)
}
