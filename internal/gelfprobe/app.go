package gelfprobe

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/go-redis/redis"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sanity-io/litter"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/gelfprobe/internal/common/logging"
	"github.com/G-Research/gelfprobe/internal/common/probeerrors"
	"github.com/G-Research/gelfprobe/internal/common/util"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/build"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/drain"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/graylog"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/metrics"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/report"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/run"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/sender"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/validator"
)

type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the applications's output.
	Out io.Writer
	// Metrics are registered here. If nil, a private registry is used and nothing is exported.
	Registerer prometheus.Registerer
	// Overridden in tests to inject dialers.
	SenderConfig func(config sender.Config) sender.Config
}

// New instantiates an App with default parameters, writing to standard out
// and registering metrics with the default Prometheus registry.
func New() *App {
	return &App{
		Params:     DefaultParams(),
		Out:        os.Stdout,
		Registerer: prometheus.DefaultRegisterer,
	}
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

// Run sends, drains and validates each requested mode in turn and prints a report per mode.
// Invalid parameters abort before anything is sent. Otherwise every mode runs, and the returned error
// collects the modes whose drain failed along with any failure to write the report file.
func (a *App) Run(ctx context.Context) error {
	if err := a.Params.Validate(); err != nil {
		return err
	}
	p := a.Params
	start := time.Now()
	logArguments(p)

	registerer := a.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	m := metrics.NewMetrics(registerer)

	client := graylog.NewClient(graylog.Config{
		Scheme:             p.Protocol,
		Host:               p.Host,
		Port:               p.ApiPort,
		BasicAuth:          graylog.LoginCredentials{Username: p.Username, Password: p.Password},
		Timeout:            p.ApiTimeout,
		InsecureSkipVerify: p.InsecureSkipVerify,
	})

	var store report.Store
	if p.Redis.Enabled() {
		db := redis.NewClient(p.Redis.AsOptions())
		defer util.CloseResource("redis", db)
		store = report.NewRedisStore(db)
	}

	senderConfig := sender.Config{
		Host:               p.Host,
		Port:               p.LogSendPort,
		Scheme:             p.Protocol,
		DialTimeout:        p.DialTimeout,
		WriteTimeout:       p.WriteTimeout,
		HttpTimeout:        p.HttpTimeout,
		InsecureSkipVerify: p.InsecureSkipVerify,
	}
	if a.SenderConfig != nil {
		senderConfig = a.SenderConfig(senderConfig)
	}

	runner := &TestRunner{
		State:         run.NewState(),
		TotalRequests: p.TotalRequests,
		Threads:       p.Threads,
		Throttle:      p.ThrottleInterval(),
		NewSender: func(mode sender.Mode) (sender.Sender, error) {
			return sender.New(mode, senderConfig)
		},
		Drain:     drain.NewWaiter(client, p.DrainPollInterval, p.DrainMaxPolls, p.SettleDelay()),
		Validator: validator.New(client),
		Metrics:   m,
	}

	var result *multierror.Error
	reports := make([]*report.DeliveryReport, 0, len(p.Modes))
	for _, mode := range p.Modes {
		rep, err := runner.Run(ctx, mode)
		reports = append(reports, rep)
		rep.Print(a.Out)
		if store != nil {
			if err := store.Save(rep); err != nil {
				logging.WithStacktrace(log.WithField("runId", rep.RunId), err).Error("Failed to store report")
			}
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	if p.ReportFile != "" {
		if err := a.writeReportFile(reports); err != nil {
			result = multierror.Append(result, err)
		}
	}

	fmt.Fprintf(a.Out, "\nTest completed in [%s]\n", time.Since(start))
	return result.ErrorOrNil()
}

// Reports prints stored reports: the report of runId when given, otherwise the last n runs, newest first.
func (a *App) Reports(runId string, n int64) error {
	if !a.Params.Redis.Enabled() {
		return errors.WithStack(&probeerrors.ErrInvalidArgument{
			Name:    "redis.addr",
			Value:   a.Params.Redis.Addr,
			Message: "reports are only stored when a Redis server is configured",
		})
	}
	db := redis.NewClient(a.Params.Redis.AsOptions())
	defer util.CloseResource("redis", db)
	store := report.NewRedisStore(db)

	if runId != "" {
		rep, err := store.Get(runId)
		if err != nil {
			return err
		}
		if rep == nil {
			return errors.Errorf("no report stored for run %s", runId)
		}
		rep.Print(a.Out)
		return nil
	}

	reports, err := store.Recent(n)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(a.Out, "No reports stored")
	}
	for _, rep := range reports {
		rep.Print(a.Out)
	}
	return nil
}

func logArguments(p *Params) {
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("Execution arguments:\n%s", litter.Sdump(p.Redacted()))
	}
}

func (a *App) writeReportFile(reports []*report.DeliveryReport) error {
	formatter, err := report.FormatterFor(a.Params.ReportFormat)
	if err != nil {
		return err
	}
	data, err := report.Generate(reports, formatter)
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.Params.ReportFile, data, 0o644); err != nil {
		return errors.WithStack(err)
	}
	log.Infof("Report written to %s", a.Params.ReportFile)
	return nil
}
