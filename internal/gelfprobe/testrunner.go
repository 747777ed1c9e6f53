package gelfprobe

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/gelfprobe/internal/common/logging"
	"github.com/G-Research/gelfprobe/internal/common/util"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/distributor"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/drain"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/gelf"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/metrics"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/report"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/run"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/sender"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseDraining
	PhaseValidating
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseSending:
		return "Sending"
	case PhaseDraining:
		return "Draining"
	case PhaseValidating:
		return "Validating"
	case PhaseDone:
		return "Done"
	}
	return "Unknown"
}

type DrainWaiter interface {
	Wait(ctx context.Context) (drain.Status, error)
}

type DeliveryValidator interface {
	Validate(ctx context.Context, state *run.State) int64
}

// TestRunner runs one mode at a time: send everything, wait for ingestion to drain, then count what was indexed.
// All runs share State, so a runner must not be used for two modes concurrently.
type TestRunner struct {
	State         *run.State
	TotalRequests int
	Threads       int
	Throttle      time.Duration
	NewSender     func(mode sender.Mode) (sender.Sender, error)
	Drain         DrainWaiter
	Validator     DeliveryValidator
	// Optional.
	Metrics *metrics.Metrics
	Clock   util.Clock

	phase Phase
	mu    sync.Mutex
}

func (r *TestRunner) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *TestRunner) setPhase(phase Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = phase
}

// Run executes a complete run for mode and always returns its report.
// The error is set when draining failed or ctx was cancelled; the report then carries whatever was counted.
func (r *TestRunner) Run(ctx context.Context, mode sender.Mode) (*report.DeliveryReport, error) {
	clock := r.Clock
	if clock == nil {
		clock = &util.DefaultClock{}
	}

	r.setPhase(PhaseSending)
	r.State.Reset(r.TotalRequests, r.Threads)
	runId := r.State.RunId()
	threads := r.State.Snapshot().Threads
	log.Infof("Starting %s test %s: [%d] requests with [%d] thread(s)", mode, runId, r.TotalRequests, threads)

	worker := &distributor.Worker{
		Mode:    mode,
		State:   r.State,
		Factory: gelf.NewFactory(runId, r.State),
		NewSender: func() (sender.Sender, error) {
			return r.NewSender(mode)
		},
		Throttle: r.Throttle,
		Recorder: r.Metrics,
	}

	sendStart := clock.Now()
	err := distributor.Distribute(ctx, r.TotalRequests, threads, worker.Run)
	sendDuration := clock.Now().Sub(sendStart)
	if err != nil && ctx.Err() == nil {
		logging.WithStacktrace(log.WithField("mode", mode), err).Error("Worker failed")
	}

	sent := r.State.Snapshot().Sent
	log.Infof("Sent [%d] requests with %s in [%s] (%.0f msg/s)", sent, mode, sendDuration, rate(sent, sendDuration))

	if ctx.Err() != nil {
		return r.finish(mode, sendDuration, drain.StatusUnknown, ctx.Err()), errors.WithStack(ctx.Err())
	}

	r.setPhase(PhaseDraining)
	drainStart := clock.Now()
	status, drainErr := r.Drain.Wait(ctx)
	r.Metrics.RecordDrainWait(string(mode), clock.Now().Sub(drainStart))
	if drainErr != nil {
		log.Warnf("%s drain did not complete (%s): %s", mode, status, drainErr)
	}

	if ctx.Err() != nil {
		return r.finish(mode, sendDuration, status, drainErr), errors.WithStack(ctx.Err())
	}

	r.setPhase(PhaseValidating)
	r.Validator.Validate(ctx, r.State)

	rep := r.finish(mode, sendDuration, status, drainErr)
	r.Metrics.RecordValidation(string(mode), rep.Validated, rep.DeliveryRatio)
	if drainErr != nil {
		return rep, errors.WithMessagef(drainErr, "%s run %s", mode, runId)
	}
	return rep, nil
}

func (r *TestRunner) finish(mode sender.Mode, sendDuration time.Duration, status drain.Status, drainErr error) *report.DeliveryReport {
	r.State.Finish()
	r.setPhase(PhaseDone)
	rep := report.FromSnapshot(string(mode), r.State.Snapshot(), sendDuration)
	rep.DrainStatus = string(status)
	if drainErr != nil {
		rep.DrainError = drainErr.Error()
	}
	return rep
}

func rate(count int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(count) / d.Seconds()
}
