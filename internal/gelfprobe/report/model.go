package report

import (
	"time"

	"github.com/G-Research/gelfprobe/internal/gelfprobe/run"
)

// DeliveryReport is the outcome of one run.
type DeliveryReport struct {
	Mode              string        `json:"mode"`
	RunId             string        `json:"runId"`
	Start             time.Time     `json:"start"`
	End               time.Time     `json:"end"`
	Duration          time.Duration `json:"duration"`
	SendDuration      time.Duration `json:"sendDuration"`
	TotalRequests     int           `json:"totalRequests"`
	Threads           int           `json:"threads"`
	Created           int64         `json:"created"`
	Sent              int64         `json:"sent"`
	Failed            int64         `json:"failed"`
	Validated         int64         `json:"validated"`
	DeliveryRatio     float64       `json:"deliveryRatio"`
	RequestedRatio    float64       `json:"requestedRatio"`
	MessagesPerSecond float64       `json:"messagesPerSecond"`
	DrainStatus       string        `json:"drainStatus"`
	DrainError        string        `json:"drainError,omitempty"`
}

// FromSnapshot fills in everything that comes from the run state.
func FromSnapshot(mode string, snapshot run.Snapshot, sendDuration time.Duration) *DeliveryReport {
	r := &DeliveryReport{
		Mode:           mode,
		RunId:          snapshot.RunId,
		Start:          snapshot.StartTime,
		End:            snapshot.EndTime,
		Duration:       snapshot.Duration(),
		SendDuration:   sendDuration,
		TotalRequests:  snapshot.TotalRequests,
		Threads:        snapshot.Threads,
		Created:        snapshot.Created,
		Sent:           snapshot.Sent,
		Failed:         snapshot.Failed,
		Validated:      snapshot.Validated,
		DeliveryRatio:  snapshot.DeliveryRatio(),
		RequestedRatio: snapshot.RequestedRatio(),
	}
	if sendDuration > 0 {
		r.MessagesPerSecond = float64(snapshot.Sent) / sendDuration.Seconds()
	}
	return r
}
