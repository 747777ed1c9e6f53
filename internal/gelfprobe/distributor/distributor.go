// Package distributor splits a run's sends across concurrent workers.
package distributor

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/G-Research/gelfprobe/internal/common/util"
)

// WorkerFunc sends count messages. workerIndex is 0-based.
// Send failures must be counted, not returned; an error here means the worker itself broke.
type WorkerFunc func(ctx context.Context, workerIndex int, count int) error

// ErrWorkerPanic is returned by Distribute when a worker panicked.
type ErrWorkerPanic struct {
	WorkerIndex int
	Value       interface{}
	Stack       string
}

func (err *ErrWorkerPanic) Error() string {
	return fmt.Sprintf("worker %d panicked: %v", err.WorkerIndex, err.Value)
}

// Distribute sends total messages using the given number of workers and blocks until all of them return.
// A single worker runs on the calling goroutine. Otherwise each batch from util.BatchSizes gets its own
// goroutine; one worker failing does not stop the others, and the first failure is returned once all are done.
func Distribute(ctx context.Context, total int, workers int, fn WorkerFunc) error {
	batches := util.BatchSizes(total, workers)
	if len(batches) == 1 {
		log.Infof("Sending in single threaded mode")
		return runWorker(ctx, 0, batches[0], fn)
	}

	log.Infof("Sending in multi threaded mode with %d threads", len(batches))
	g := errgroup.Group{}
	for i, count := range batches {
		i, count := i, count
		g.Go(func() error {
			return runWorker(ctx, i, count, fn)
		})
	}
	return g.Wait()
}

func runWorker(ctx context.Context, workerIndex int, count int, fn WorkerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithStack(&ErrWorkerPanic{
				WorkerIndex: workerIndex,
				Value:       r,
				Stack:       string(debug.Stack()),
			})
		}
	}()
	log.Debugf("worker %d sending %d messages", workerIndex, count)
	return fn(ctx, workerIndex, count)
}
