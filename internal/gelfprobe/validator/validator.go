// Package validator counts how many messages of a run became searchable.
package validator

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/G-Research/gelfprobe/internal/common/logging"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/run"
)

// Searcher returns the number of messages matching a query. Implemented by graylog.Client.
type Searcher interface {
	SearchTotal(ctx context.Context, query string) (int64, error)
}

type Validator struct {
	Searcher Searcher
}

func New(searcher Searcher) *Validator {
	return &Validator{Searcher: searcher}
}

// QueryForRun matches messages carrying the run id as an exact phrase.
func QueryForRun(runId string) string {
	return fmt.Sprintf("%q", runId)
}

// Validate stores the number of searchable messages of the current run in state and returns it.
// Failures are logged and count as zero validated messages; they never abort the run.
func (v *Validator) Validate(ctx context.Context, state *run.State) int64 {
	runId := state.RunId()
	total, err := v.Searcher.SearchTotal(ctx, QueryForRun(runId))
	if err != nil {
		logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Errorf("Request failed - validation of run %s", runId)
		total = 0
	}
	state.SetValidated(total)

	snapshot := state.Snapshot()
	if err == nil {
		log.Infof(
			"[%d] requests generated - [%d] sent - [%d] (%d%%) validated",
			snapshot.TotalRequests, snapshot.Sent, snapshot.Validated, int(snapshot.DeliveryRatio()),
		)
	}
	return snapshot.Validated
}
