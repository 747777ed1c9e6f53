package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWait(t *testing.T) {
	tests := map[string]struct {
		minimum time.Duration
		elapsed time.Duration
		want    time.Duration
	}{
		"sleeps for the remainder":  {20 * time.Millisecond, 5 * time.Millisecond, 15 * time.Millisecond},
		"elapsed exceeds minimum":   {20 * time.Millisecond, 25 * time.Millisecond, 0},
		"elapsed equals minimum":    {20 * time.Millisecond, 20 * time.Millisecond, 0},
		"disabled":                  {0, 5 * time.Millisecond, 0},
		"negative minimum disabled": {-time.Millisecond, 0, 0},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var slept []time.Duration
			th := New(tc.minimum)
			th.Sleep = func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			}

			got := th.Wait(context.Background(), tc.elapsed)
			assert.Equal(t, tc.want, got)
			if tc.want == 0 {
				assert.Empty(t, slept)
			} else {
				assert.Equal(t, []time.Duration{tc.want}, slept)
			}
		})
	}
}

func TestWait_RealTime(t *testing.T) {
	th := New(20 * time.Millisecond)

	start := time.Now()
	th.Wait(context.Background(), 5*time.Millisecond)
	slept := time.Since(start)
	assert.GreaterOrEqual(t, slept, 15*time.Millisecond)
	assert.Less(t, slept, 500*time.Millisecond)

	start = time.Now()
	th.Wait(context.Background(), 25*time.Millisecond)
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestWait_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	th := New(time.Hour)
	start := time.Now()
	th.Wait(ctx, 0)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFromMillis(t *testing.T) {
	assert.Equal(t, 1500*time.Microsecond, FromMillis(1.5).Minimum)
	assert.Equal(t, time.Duration(0), FromMillis(0).Minimum)
}

func TestWait_NilThrottle(t *testing.T) {
	var th *Throttle
	assert.Equal(t, time.Duration(0), th.Wait(context.Background(), 0))
}
