package distributor

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/G-Research/gelfprobe/internal/common/util"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/gelf"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/run"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/sender"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/throttle"
)

// SendRecorder observes every send attempt, e.g., for Prometheus.
type SendRecorder interface {
	RecordSend(mode string, duration time.Duration, err error)
}

// Worker sends batches of messages for one run. Each call to Run builds its own sender and throttle,
// so a single Worker can be shared by all goroutines of Distribute.
type Worker struct {
	Mode      sender.Mode
	State     *run.State
	Factory   *gelf.Factory
	NewSender func() (sender.Sender, error)
	// Minimum time between two sends of the same worker.
	Throttle time.Duration
	Recorder SendRecorder
}

// Run sends count messages sequentially. It only returns an error if ctx is cancelled.
func (w *Worker) Run(ctx context.Context, workerIndex int, count int) error {
	if count <= 0 {
		return nil
	}
	s, err := w.NewSender()
	if err != nil {
		return err
	}
	defer util.CloseResource(string(w.Mode)+" sender", s)

	th := throttle.New(w.Throttle)
	snapshot := w.State.Snapshot()
	progressStep := progressStep(snapshot.TotalRequests)

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := w.Factory.Create()
		start := time.Now()
		err := s.Send(ctx, msg)
		duration := time.Since(start)
		if w.Recorder != nil {
			w.Recorder.RecordSend(string(w.Mode), duration, err)
		}

		if err != nil {
			w.State.RecordFailed()
			log.WithError(err).WithField("messageId", msg.MessageId).Debugf("%s request %s failed", w.Mode, msg.MessageId)
		} else {
			sent := w.State.RecordSent()
			if log.IsLevelEnabled(log.TraceLevel) {
				log.Tracef(
					"Test %s - Sent %s message %s -> %s in [%s] (%.0f msg/s)",
					snapshot.RunId, w.Mode, msg.MessageId, s.Destination(), duration, rate(1, duration),
				)
			}
			if sent%progressStep == 0 {
				w.logProgress(sent, snapshot, duration)
			}
		}

		if slept := th.Wait(ctx, duration); slept > 0 {
			log.Tracef("Throttled %s send of worker %d for %s", w.Mode, workerIndex, slept)
		}
	}
	return nil
}

func (w *Worker) logProgress(sent int64, snapshot run.Snapshot, duration time.Duration) {
	progress := 0.0
	if snapshot.TotalRequests > 0 {
		progress = float64(sent) / float64(snapshot.TotalRequests) * 100
	}
	log.Infof(
		"%s Send progress: %d%% (%.0f msg/s) - [%d] sent - [%s]",
		w.Mode, int(progress), rate(sent, time.Since(snapshot.StartTime)), sent, duration,
	)
}

// progressStep is one percent of the total, so progress is logged at most 100 times per run.
func progressStep(total int) int64 {
	step := int64(math.Floor(float64(total) / 100))
	if step < 1 {
		return 1
	}
	return step
}

func rate(count int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(count) / d.Seconds()
}
