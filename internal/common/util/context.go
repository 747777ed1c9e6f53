package util

import (
	"context"
	"time"
)

// SleepContext blocks for d or until ctx is done, whichever happens first.
// Returns ctx.Err() if the sleep was cut short.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
