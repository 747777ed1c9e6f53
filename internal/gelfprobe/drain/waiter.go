// Package drain waits for the ingestion pipeline to work through its backlog before validation.
package drain

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/gelfprobe/internal/common/util"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/graylog"
)

type Status string

const (
	// Either the backlog or the output throughput reached zero.
	StatusDrained Status = "Drained"
	// Metrics could not be read, so it is not known whether ingestion finished.
	StatusUnknown Status = "Unknown"
	// Still processing after the maximum number of polls.
	StatusTimedOut Status = "TimedOut"
)

var (
	ErrMetricsUnavailable = errors.New("ingestion metrics unavailable")
	ErrDrainTimeout       = errors.New("ingestion still processing after the maximum number of polls")

	errStillProcessing = errors.New("still processing")
)

// MetricsSource reads a named ingestion metric. Implemented by graylog.Client.
type MetricsSource interface {
	Metric(ctx context.Context, name string) (float64, error)
}

type Waiter struct {
	Source MetricsSource
	// Time between two polls of the metrics.
	PollInterval time.Duration
	// Upper bound on the number of polls.
	MaxPolls uint
	// Fixed wait after polling stops, covering the delay before indexed messages become searchable.
	SettleDelay time.Duration
	// Replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewWaiter(source MetricsSource, pollInterval time.Duration, maxPolls uint, settleDelay time.Duration) *Waiter {
	return &Waiter{
		Source:       source,
		PollInterval: pollInterval,
		MaxPolls:     maxPolls,
		SettleDelay:  settleDelay,
		Sleep:        util.SleepContext,
	}
}

// Wait polls until the backlog or the throughput is zero, then always sleeps for SettleDelay.
// A metrics failure stops polling straight away with ErrMetricsUnavailable; running out of polls gives ErrDrainTimeout.
func (w *Waiter) Wait(ctx context.Context) (Status, error) {
	status, err := w.poll(ctx)

	if w.SettleDelay > 0 {
		log.Infof("Waiting for another %s for the index refresh...", w.SettleDelay)
		sleep := w.Sleep
		if sleep == nil {
			sleep = util.SleepContext
		}
		if sleepErr := sleep(ctx, w.SettleDelay); sleepErr != nil && err == nil {
			return status, errors.WithStack(sleepErr)
		}
	}
	return status, err
}

func (w *Waiter) poll(ctx context.Context) (Status, error) {
	maxPolls := w.MaxPolls
	if maxPolls == 0 {
		maxPolls = 1
	}
	var metricErr error
	err := retry.Do(
		func() error {
			processing, err := w.stillProcessing(ctx)
			if err != nil {
				metricErr = err
				return err
			}
			if processing {
				return errStillProcessing
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(maxPolls),
		retry.Delay(w.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errStillProcessing)
		}),
	)
	switch {
	case err == nil:
		return StatusDrained, nil
	case ctx.Err() != nil:
		return StatusUnknown, errors.WithStack(ctx.Err())
	case metricErr != nil:
		return StatusUnknown, errors.WithStack(&MetricsUnavailableError{Cause: metricErr})
	case errors.Is(err, errStillProcessing):
		return StatusTimedOut, errors.WithStack(ErrDrainTimeout)
	default:
		return StatusUnknown, errors.WithStack(err)
	}
}

// MetricsUnavailableError matches ErrMetricsUnavailable with errors.Is and unwraps to the underlying failure.
type MetricsUnavailableError struct {
	Cause error
}

func (err *MetricsUnavailableError) Error() string {
	return ErrMetricsUnavailable.Error() + ": " + err.Cause.Error()
}

func (err *MetricsUnavailableError) Unwrap() error {
	return err.Cause
}

func (err *MetricsUnavailableError) Is(target error) bool {
	return target == ErrMetricsUnavailable
}

func (w *Waiter) stillProcessing(ctx context.Context) (bool, error) {
	journalSize, err := w.Source.Metric(ctx, graylog.JournalEntriesUncommittedMetric)
	if err != nil {
		return false, err
	}
	outputThroughput, err := w.Source.Metric(ctx, graylog.OutputThroughputMetric)
	if err != nil {
		return false, err
	}
	if journalSize > 0 && outputThroughput > 0 {
		log.Infof("Progress: journal-size=%v output-throughput=%v", journalSize, outputThroughput)
		return true, nil
	}
	return false, nil
}
