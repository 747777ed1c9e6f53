// Package gelf builds the GELF 1.1 messages sent by the probe.
package gelf

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/G-Research/gelfprobe/internal/common/util"
)

const (
	Version      = "1.1"
	DefaultHost  = "example.org"
	ShortMessage = "this is the short message"
	FullMessage  = "Backtrace here\n\nmore stuff"
	// Syslog severity "alert".
	DefaultLevel = 1

	datetimeLayout = "2006-01-02 15:04:05.000000"
)

// Message is the envelope understood by the ingestion service.
// Field names are part of the service's schema and must not change.
type Message struct {
	Version      string `json:"version"`
	Host         string `json:"host"`
	ShortMessage string `json:"short_message"`
	FullMessage  string `json:"full_message"`
	Timestamp    int64  `json:"timestamp"`
	Level        int    `json:"level"`
	Datetime     string `json:"_datetime"`
	MessageId    string `json:"_message_id"`
	GroupId      string `json:"_group_id"`
	Sequence     int64  `json:"_sequence"`
}

func (m *Message) Encode() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrapf(err, "error encoding message %s", m.MessageId)
	}
	return b, nil
}

// SequenceSource hands out run-unique, increasing sequence numbers. Implemented by run.State.
type SequenceSource interface {
	NextSequence() int64
}

// Factory creates one message per send attempt, tagged with the run id.
// Safe for concurrent use as long as Sequence is.
type Factory struct {
	RunId    string
	Host     string
	Sequence SequenceSource
	Clock    util.Clock
}

func NewFactory(runId string, sequence SequenceSource) *Factory {
	return &Factory{
		RunId:    runId,
		Host:     DefaultHost,
		Sequence: sequence,
		Clock:    &util.DefaultClock{},
	}
}

func (f *Factory) Create() *Message {
	now := f.Clock.Now()
	return &Message{
		Version:      Version,
		Host:         f.Host,
		ShortMessage: ShortMessage,
		FullMessage:  FullMessage,
		Timestamp:    now.UTC().Unix(),
		Level:        DefaultLevel,
		Datetime:     now.Format(datetimeLayout),
		MessageId:    util.NewUUID(),
		GroupId:      f.RunId,
		Sequence:     f.Sequence.NextSequence(),
	}
}
