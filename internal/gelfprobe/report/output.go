package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/G-Research/gelfprobe/internal/common/probeerrors"
)

// Formatter serialises a set of reports.
type Formatter func(reports []*DeliveryReport) ([]byte, error)

func YamlFormatter(reports []*DeliveryReport) ([]byte, error) {
	b, err := yaml.Marshal(reports)
	return b, errors.WithStack(err)
}

func JsonFormatter(reports []*DeliveryReport) ([]byte, error) {
	b, err := json.MarshalIndent(reports, "", "  ")
	return b, errors.WithStack(err)
}

// FormatterFor looks up a formatter by name. The empty name means yaml.
func FormatterFor(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "yaml", "yml":
		return YamlFormatter, nil
	case "json":
		return JsonFormatter, nil
	}
	return nil, errors.WithStack(&probeerrors.ErrInvalidArgument{
		Name:    "reportFormat",
		Value:   name,
		Message: "supported formats are yaml and json",
	})
}

func Generate(reports []*DeliveryReport, formatter Formatter) ([]byte, error) {
	if formatter == nil {
		formatter = YamlFormatter
	}
	return formatter(reports)
}

// Print writes the human readable summary of one run.
func (r *DeliveryReport) Print(out io.Writer) {
	_, _ = fmt.Fprintf(out, "\nDelivery report %s (run %s):\n", r.Mode, r.RunId)
	_, _ = fmt.Fprintf(out, "\t[%d] requests generated - [%d] sent - [%d] failed - [%d] (%d%%) validated\n",
		r.TotalRequests, r.Sent, r.Failed, r.Validated, int(r.DeliveryRatio))
	_, _ = fmt.Fprintf(out, "\tsent/requested: %d%%\n", int(r.RequestedRatio))
	_, _ = fmt.Fprintf(out, "\tsend time: %s (%.0f msg/s) with %d thread(s)\n", r.SendDuration, r.MessagesPerSecond, r.Threads)
	if r.DrainError != "" {
		_, _ = fmt.Fprintf(out, "\tdrain: %s (%s)\n", r.DrainStatus, r.DrainError)
	} else {
		_, _ = fmt.Fprintf(out, "\tdrain: %s\n", r.DrainStatus)
	}
	_, _ = fmt.Fprintf(out, "\ttotal time: %s\n", r.Duration)
}
