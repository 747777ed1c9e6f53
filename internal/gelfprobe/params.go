package gelfprobe

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	commonconfig "github.com/G-Research/gelfprobe/internal/common/config"
	"github.com/G-Research/gelfprobe/internal/common/probeerrors"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/report"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/sender"
)

// Params holds all user-customizable parameters. They can be given on the command line,
// in the config file or as GELFPROBE_ prefixed environment variables.
type Params struct {
	Host string `validate:"required"`
	// Port of the GELF inputs; the same port is used for UDP, TCP and HTTP.
	LogSendPort int `validate:"gt=0,lte=65535"`
	ApiPort     int `validate:"gt=0,lte=65535"`
	// Scheme for the HTTP sender and the REST API.
	Protocol string `validate:"oneof=http https"`
	Username string
	Password string

	TotalRequests int
	Threads       int
	Modes         []sender.Mode `mapstructure:"mode"`
	// Seconds to wait after the pipeline is idle for messages to become searchable.
	EsRefreshInterval float64 `validate:"gte=0"`
	// Added to EsRefreshInterval before validating.
	SettleMargin time.Duration `validate:"gte=0"`
	// Minimum milliseconds between two sends of one worker.
	Throttle  float64 `validate:"gte=0"`
	Verbosity int

	DialTimeout        time.Duration
	WriteTimeout       time.Duration
	HttpTimeout        time.Duration
	ApiTimeout         time.Duration
	DrainPollInterval  time.Duration
	DrainMaxPolls      uint
	InsecureSkipVerify bool

	// Port for the Prometheus /metrics endpoint. 0 disables it.
	MetricsPort  int `validate:"gte=0,lte=65535"`
	ReportFile   string
	ReportFormat string
	Redis        commonconfig.RedisConfig
}

// DefaultSettleMargin covers the time between an index refresh and the search results reflecting it.
const DefaultSettleMargin = 5 * time.Second

func DefaultParams() *Params {
	return &Params{
		Host:               "localhost",
		LogSendPort:        12201,
		ApiPort:            9000,
		Protocol:           "http",
		Username:           "admin",
		Password:           "admin",
		TotalRequests:      1000,
		Threads:            1,
		Modes:              []sender.Mode{sender.UDP, sender.TCP},
		EsRefreshInterval:  15,
		SettleMargin:       DefaultSettleMargin,
		DialTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		HttpTimeout:        10 * time.Second,
		ApiTimeout:         10 * time.Second,
		DrainPollInterval:  2 * time.Second,
		DrainMaxPolls:      900,
		InsecureSkipVerify: true,
		ReportFormat:       "yaml",
	}
}

// Validate checks the parameters before anything is sent. Threads below one are raised to one,
// and Modes is rewritten to the parsed modes, each at most once, in the order of sender.AllModes.
func (p *Params) Validate() error {
	if p.Threads < 1 {
		p.Threads = 1
	}
	if p.TotalRequests <= 0 {
		return errors.WithStack(&probeerrors.ErrInvalidArgument{
			Name:    "TotalRequests",
			Value:   p.TotalRequests,
			Message: "must be positive",
		})
	}
	if len(p.Modes) == 0 {
		return errors.WithStack(&probeerrors.ErrInvalidArgument{
			Name:    "Mode",
			Value:   p.Modes,
			Message: "no mode provided",
		})
	}
	requested := make([]sender.Mode, 0, len(p.Modes))
	for _, mode := range p.Modes {
		parsed, err := sender.ParseMode(string(mode))
		if err != nil {
			return err
		}
		requested = append(requested, parsed)
	}
	modes := make([]sender.Mode, 0, len(sender.AllModes))
	for _, mode := range sender.AllModes {
		if slices.Contains(requested, mode) {
			modes = append(modes, mode)
		}
	}
	p.Modes = modes
	if _, err := report.FormatterFor(p.ReportFormat); err != nil {
		return err
	}
	if err := commonconfig.Validate(p); err != nil {
		commonconfig.LogValidationErrors(err)
		return errors.WithMessage(err, "invalid configuration")
	}
	return nil
}

// SettleDelay is how long to wait after ingestion drained: the index refresh interval plus SettleMargin.
func (p *Params) SettleDelay() time.Duration {
	return time.Duration(p.EsRefreshInterval*float64(time.Second)) + p.SettleMargin
}

func (p *Params) ThrottleInterval() time.Duration {
	return time.Duration(p.Throttle * float64(time.Millisecond))
}

// Redacted returns a copy that is safe to log.
func (p *Params) Redacted() Params {
	c := *p
	if c.Password != "" {
		c.Password = "********"
	}
	if c.Redis.Password != "" {
		c.Redis.Password = "********"
	}
	return c
}

// ModeDecodeHook turns the strings of the mode list into validated modes.
func ModeDecodeHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(sender.UDP) {
			return data, nil
		}
		return sender.ParseMode(data.(string))
	}
}
