// Package throttle enforces a minimum interval between the sends of one worker.
package throttle

import (
	"context"
	"time"

	"github.com/G-Research/gelfprobe/internal/common/util"
)

// Throttle is owned by a single worker. With N workers the aggregate rate can reach N/Minimum.
type Throttle struct {
	// Minimum time between the starts of two consecutive sends. Zero or negative disables throttling.
	Minimum time.Duration
	// Sleep is replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

func New(minimum time.Duration) *Throttle {
	return &Throttle{
		Minimum: minimum,
		Sleep:   util.SleepContext,
	}
}

// FromMillis builds a throttle from the fractional milliseconds accepted on the command line.
func FromMillis(ms float64) *Throttle {
	return New(time.Duration(ms * float64(time.Millisecond)))
}

// Wait sleeps for whatever is left of Minimum after a send that took elapsed, and returns how long it slept.
func (t *Throttle) Wait(ctx context.Context, elapsed time.Duration) time.Duration {
	if t == nil || t.Minimum <= 0 || elapsed >= t.Minimum {
		return 0
	}
	remaining := t.Minimum - elapsed
	sleep := t.Sleep
	if sleep == nil {
		sleep = util.SleepContext
	}
	_ = sleep(ctx, remaining)
	return remaining
}
