package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/G-Research/gelfprobe/internal/common/probeerrors"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/run"
)

func TestFromSnapshot(t *testing.T) {
	start := time.Date(2022, 11, 1, 10, 0, 0, 0, time.UTC)
	snapshot := run.Snapshot{
		RunId:         "run-1",
		StartTime:     start,
		EndTime:       start.Add(30 * time.Second),
		TotalRequests: 100,
		Threads:       4,
		Created:       100,
		Sent:          80,
		Failed:        20,
		Validated:     60,
	}

	r := FromSnapshot("UDP", snapshot, 2*time.Second)

	assert.Equal(t, "UDP", r.Mode)
	assert.Equal(t, "run-1", r.RunId)
	assert.Equal(t, 30*time.Second, r.Duration)
	assert.Equal(t, 75.0, r.DeliveryRatio)
	assert.Equal(t, 80.0, r.RequestedRatio)
	assert.Equal(t, 40.0, r.MessagesPerSecond)
}

func TestFromSnapshot_NothingSent(t *testing.T) {
	r := FromSnapshot("TCP", run.Snapshot{TotalRequests: 10, Failed: 10}, 0)
	assert.Equal(t, 0.0, r.DeliveryRatio)
	assert.Equal(t, 0.0, r.MessagesPerSecond)
}

func TestFormatterFor(t *testing.T) {
	tests := map[string]struct {
		name    string
		isValid bool
	}{
		"empty":      {name: "", isValid: true},
		"yaml":       {name: "yaml", isValid: true},
		"yml":        {name: "YML", isValid: true},
		"json":       {name: "json", isValid: true},
		"unknown":    {name: "xml", isValid: false},
		"whitespace": {name: " json", isValid: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := FormatterFor(tc.name)
			if tc.isValid {
				require.NoError(t, err)
				assert.NotNil(t, f)
			} else {
				assert.True(t, probeerrors.IsInvalidArgument(err))
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	reports := []*DeliveryReport{
		{Mode: "UDP", RunId: "a", Sent: 10, Validated: 10, DeliveryRatio: 100, DrainStatus: "drained"},
		{Mode: "TCP", RunId: "b", Sent: 10, Validated: 5, DeliveryRatio: 50, DrainStatus: "timed-out", DrainError: "timeout"},
	}

	out, err := Generate(reports, JsonFormatter)
	require.NoError(t, err)
	var decoded []*DeliveryReport
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, reports, decoded)

	out, err = Generate(reports, nil)
	require.NoError(t, err)
	decoded = nil
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, reports, decoded)
	assert.Contains(t, string(out), "deliveryRatio: 50")
}

func TestPrint(t *testing.T) {
	r := &DeliveryReport{
		Mode:          "HTTP",
		RunId:         "run-1",
		TotalRequests: 10,
		Sent:          10,
		Validated:     7,
		DeliveryRatio: 70,
		DrainStatus:   "timed-out",
		DrainError:    "journal never drained",
	}
	var out bytes.Buffer
	r.Print(&out)

	assert.Contains(t, out.String(), "Delivery report HTTP (run run-1)")
	assert.Contains(t, out.String(), "[10] requests generated - [10] sent - [0] failed - [7] (70%) validated")
	assert.Contains(t, out.String(), "drain: timed-out (journal never drained)")
}
