package gelfprobe

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/gelfprobe/internal/gelfprobe/drain"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/gelf"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/run"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/sender"
)

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "Idle", PhaseIdle.String())
	assert.Equal(t, "Sending", PhaseSending.String())
	assert.Equal(t, "Draining", PhaseDraining.String())
	assert.Equal(t, "Validating", PhaseValidating.String())
	assert.Equal(t, "Done", PhaseDone.String())
	assert.Equal(t, "Unknown", Phase(42).String())
}

func TestTestRunner_AllDelivered(t *testing.T) {
	senders := &stubSenders{}
	waiter := &stubWaiter{status: drain.StatusDrained}
	v := &stubValidator{}
	runner := newRunner(100, 4, senders, waiter, v)
	assert.Equal(t, PhaseIdle, runner.Phase())

	rep, err := runner.Run(context.Background(), sender.UDP)

	require.NoError(t, err)
	assert.Equal(t, PhaseDone, runner.Phase())
	assert.Equal(t, "UDP", rep.Mode)
	assert.Equal(t, int64(100), rep.Created)
	assert.Equal(t, int64(100), rep.Sent)
	assert.Equal(t, int64(0), rep.Failed)
	assert.Equal(t, int64(100), rep.Validated)
	assert.Equal(t, 100.0, rep.DeliveryRatio)
	assert.Equal(t, 100.0, rep.RequestedRatio)
	assert.Equal(t, "Drained", rep.DrainStatus)
	assert.Empty(t, rep.DrainError)
	assert.False(t, rep.End.Before(rep.Start))
	assert.Equal(t, 4, senders.created())
	assert.Equal(t, 1, waiter.calls)
	assert.Equal(t, 1, v.calls)
}

func TestTestRunner_SendFailuresAreCounted(t *testing.T) {
	senders := &stubSenders{failEvery: 2}
	runner := newRunner(10, 1, senders, &stubWaiter{status: drain.StatusDrained}, &stubValidator{})

	rep, err := runner.Run(context.Background(), sender.TCP)

	require.NoError(t, err)
	assert.Equal(t, int64(5), rep.Sent)
	assert.Equal(t, int64(5), rep.Failed)
	assert.Equal(t, int64(10), rep.Created)
	assert.Equal(t, 50.0, rep.RequestedRatio)
	assert.Equal(t, 100.0, rep.DeliveryRatio)
}

func TestTestRunner_DrainFailureStillValidates(t *testing.T) {
	waiter := &stubWaiter{status: drain.StatusTimedOut, err: errors.WithStack(drain.ErrDrainTimeout)}
	v := &stubValidator{}
	runner := newRunner(10, 2, &stubSenders{}, waiter, v)

	rep, err := runner.Run(context.Background(), sender.HTTP)

	assert.True(t, errors.Is(err, drain.ErrDrainTimeout))
	assert.Equal(t, 1, v.calls)
	assert.Equal(t, "TimedOut", rep.DrainStatus)
	assert.Contains(t, rep.DrainError, drain.ErrDrainTimeout.Error())
	assert.Equal(t, int64(10), rep.Validated)
}

func TestTestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	waiter := &stubWaiter{status: drain.StatusDrained}
	v := &stubValidator{}
	runner := newRunner(10, 2, &stubSenders{}, waiter, v)

	rep, err := runner.Run(ctx, sender.UDP)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int64(0), rep.Sent)
	assert.Equal(t, 0, waiter.calls)
	assert.Equal(t, 0, v.calls)
	assert.Equal(t, PhaseDone, runner.Phase())
}

func TestTestRunner_EachRunHasItsOwnId(t *testing.T) {
	runner := newRunner(5, 1, &stubSenders{}, &stubWaiter{status: drain.StatusDrained}, &stubValidator{})

	first, err := runner.Run(context.Background(), sender.UDP)
	require.NoError(t, err)
	second, err := runner.Run(context.Background(), sender.TCP)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunId, second.RunId)
	assert.Equal(t, int64(5), second.Sent)
	assert.Equal(t, int64(5), second.Created)
}

func newRunner(total int, threads int, senders *stubSenders, waiter DrainWaiter, v DeliveryValidator) *TestRunner {
	return &TestRunner{
		State:         run.NewState(),
		TotalRequests: total,
		Threads:       threads,
		NewSender:     senders.New,
		Drain:         waiter,
		Validator:     v,
	}
}

type stubSenders struct {
	failEvery int
	count     int
	mu        sync.Mutex
}

func (s *stubSenders) New(sender.Mode) (sender.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return &stubSender{failEvery: s.failEvery}, nil
}

func (s *stubSenders) created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

type stubSender struct {
	failEvery int
	sends     int
}

func (s *stubSender) Send(_ context.Context, _ *gelf.Message) error {
	s.sends++
	if s.failEvery > 0 && s.sends%s.failEvery == 0 {
		return errors.New("send failed")
	}
	return nil
}

func (s *stubSender) Destination() string { return "stub" }

func (s *stubSender) Close() error { return nil }

type stubWaiter struct {
	status drain.Status
	err    error
	calls  int
}

func (w *stubWaiter) Wait(context.Context) (drain.Status, error) {
	w.calls++
	return w.status, w.err
}

// stubValidator finds every message that was sent.
type stubValidator struct {
	calls int
}

func (v *stubValidator) Validate(_ context.Context, state *run.State) int64 {
	v.calls++
	sent := state.Snapshot().Sent
	state.SetValidated(sent)
	return sent
}
