package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/promrus"
)

const Stacktrace = "stacktrace"

// Unexported but considered part of the stable interface of pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Unexported but considered part of the stable interface of pkg/errors.
type causer interface {
	Cause() error
}

// ConfigureCliLogging sets up logrus for command line use: coloured text with full timestamps on stdout.
func ConfigureCliLogging() {
	ConfigureCliLoggingTo(os.Stdout)
}

func ConfigureCliLoggingTo(out io.Writer) {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(out)
	log.SetLevel(log.InfoLevel)
}

// LevelForVerbosity maps the number of -v flags to a log level.
// 0 is info, 1 adds debug output (arguments, query urls), 2 or more adds a line per message sent.
func LevelForVerbosity(verbosity int) log.Level {
	switch {
	case verbosity <= 0:
		return log.InfoLevel
	case verbosity == 1:
		return log.DebugLevel
	default:
		return log.TraceLevel
	}
}

func SetVerbosity(verbosity int) {
	log.SetLevel(LevelForVerbosity(verbosity))
}

// AddPrometheusHook counts log lines per level in the default Prometheus registry.
func AddPrometheusHook() error {
	hook, err := promrus.NewPrometheusHook()
	if err != nil {
		return errors.WithStack(err)
	}
	log.AddHook(hook)
	return nil
}

// WithStacktrace returns a new logrus.Entry obtained by adding error information and, if available, a stack trace
// as fields to the provided logrus.Entry.
func WithStacktrace(logger *log.Entry, err error) *log.Entry {
	logger = logger.WithError(err)
	if stack := ExtractStack(err); stack != nil {
		logger = logger.WithField(Stacktrace, stack)
	}
	return logger
}

// ExtractStack walks down the list of errors and retrieves the first errors.StackTrace it encounters
// If no stacktraces are found, it returns nil
func ExtractStack(err error) errors.StackTrace {
	if stackErr, ok := err.(stackTracer); ok {
		return stackErr.StackTrace()
	} else if causeErr, ok := err.(causer); ok {
		return ExtractStack(causeErr.Cause())
	}
	return nil
}
