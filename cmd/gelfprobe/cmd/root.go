package cmd

import (
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	commonapp "github.com/G-Research/gelfprobe/internal/common/app"
	commonconfig "github.com/G-Research/gelfprobe/internal/common/config"
	"github.com/G-Research/gelfprobe/internal/common/logging"
	"github.com/G-Research/gelfprobe/internal/gelfprobe"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/metrics"
)

const (
	configFlag = "config"
	envPrefix  = "GELFPROBE"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gelfprobe",
		Short: "gelfprobe sends GELF messages to Graylog and checks how many of them were indexed.",
		Long: `gelfprobe sends GELF messages to Graylog and checks how many of them were indexed.

Each requested mode (UDP, TCP, HTTP) is run in turn: messages are sent by a number of
concurrent workers, the probe waits until Graylog has processed its journal, and the
search API is then used to count the messages tagged with the run id.

Persistent config can be saved in a config file so it doesn't have to be specified every command.

Example structure:
host: graylog.example.com
apiPort: 9000
username: admin
password: secret
mode: [UDP, HTTP]

The location of this file can be passed in using the --config argument.
If not provided, $HOME/.gelfprobe.yaml is used.
Every setting can also be given as an environment variable, e.g., GELFPROBE_TOTALREQUESTS.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String(configFlag, "", "Config file (default is $HOME/.gelfprobe.yaml)")

	app := gelfprobe.New()
	cmd.AddCommand(
		versionCmd(app),
		runCmd(app),
		reportCmd(app),
	)

	return cmd
}

// Print version info and exit.
func versionCmd(app *gelfprobe.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Out = cmd.OutOrStdout()
			return app.Version()
		},
	}
	return cmd
}

// Send messages in every requested mode and report the delivery ratio of each.
func runCmd(app *gelfprobe.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send GELF messages and validate that Graylog indexed them.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Out = cmd.OutOrStdout()

			// Cancelled on SIGINT/SIGTERM; the current run still prints what it counted.
			ctx, cancel := commonapp.CreateContextWithShutdown()
			defer cancel()

			if app.Params.MetricsPort > 0 {
				if err := logging.AddPrometheusHook(); err != nil {
					return err
				}
				shutdown, err := metrics.ExposeMetrics(app.Params.MetricsPort, prometheus.DefaultGatherer)
				if err != nil {
					return err
				}
				defer shutdown()
			}
			return app.Run(ctx)
		},
	}

	addRunFlags(cmd.Flags(), gelfprobe.DefaultParams())
	return cmd
}

// Print reports stored in Redis by earlier runs.
func reportCmd(app *gelfprobe.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print delivery reports stored in Redis.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Out = cmd.OutOrStdout()

			runId, err := cmd.Flags().GetString("runId")
			if err != nil {
				return errors.WithStack(err)
			}
			last, err := cmd.Flags().GetInt64("last")
			if err != nil {
				return errors.WithStack(err)
			}
			return app.Reports(runId, last)
		},
	}

	cmd.Flags().String("runId", "", "Print the report of this run only")
	cmd.Flags().Int64("last", 10, "Number of most recent reports to print")
	addRedisFlags(cmd.Flags(), gelfprobe.DefaultParams())
	return cmd
}

func addRunFlags(flags *pflag.FlagSet, defaults *gelfprobe.Params) {
	modes := make([]string, 0, len(defaults.Modes))
	for _, mode := range defaults.Modes {
		modes = append(modes, string(mode))
	}

	flags.StringP("host", "H", defaults.Host, "Graylog host")
	flags.IntP("logSendPort", "l", defaults.LogSendPort, "Port of the GELF inputs")
	flags.Float64P("throttle", "r", defaults.Throttle, "Minimum milliseconds between two sends of one thread")
	flags.Float64P("esRefreshInterval", "R", defaults.EsRefreshInterval, "Seconds to wait for the search index to refresh before validating")
	flags.Duration("settleMargin", defaults.SettleMargin, "Extra wait on top of esRefreshInterval before validating")
	flags.IntP("apiPort", "a", defaults.ApiPort, "Port of the Graylog REST API")
	flags.StringP("protocol", "P", defaults.Protocol, "Scheme of the REST API and the HTTP input: http or https")
	flags.StringP("username", "u", defaults.Username, "REST API username")
	flags.StringP("password", "p", defaults.Password, "REST API password")
	flags.IntP("totalRequests", "t", defaults.TotalRequests, "Number of messages to send per mode")
	flags.IntP("threads", "T", defaults.Threads, "Number of concurrent senders")
	flags.StringSliceP("mode", "m", modes, "Modes to run: UDP, TCP and/or HTTP; each runs once, in that order")
	flags.CountP("verbosity", "v", "Increase output verbosity; repeat for a line per message")

	flags.Duration("dialTimeout", defaults.DialTimeout, "Timeout for opening a UDP/TCP connection")
	flags.Duration("writeTimeout", defaults.WriteTimeout, "Timeout for writing one message over UDP/TCP")
	flags.Duration("httpTimeout", defaults.HttpTimeout, "Timeout for one message over HTTP")
	flags.Duration("apiTimeout", defaults.ApiTimeout, "Timeout for one REST API request")
	flags.Duration("drainPollInterval", defaults.DrainPollInterval, "Time between two polls of the journal metrics")
	flags.Uint("drainMaxPolls", defaults.DrainMaxPolls, "Give up waiting for the journal to drain after this many polls")
	flags.Bool("insecureSkipVerify", defaults.InsecureSkipVerify, "Skip TLS certificate verification")

	flags.Int("metricsPort", defaults.MetricsPort, "Serve Prometheus metrics on this port; 0 disables")
	flags.String("reportFile", defaults.ReportFile, "Write all reports to this file")
	flags.String("reportFormat", defaults.ReportFormat, "Format of the report file: yaml or json")
	addRedisFlags(flags, defaults)
}

func addRedisFlags(flags *pflag.FlagSet, defaults *gelfprobe.Params) {
	flags.String("redisAddr", defaults.Redis.Addr, "Redis server at host:port where reports are stored")
	flags.Int("redisDb", defaults.Redis.DB, "Redis database for stored reports")
	flags.String("redisPassword", defaults.Redis.Password, "Redis password")
}

// Flags whose viper key differs from the flag name.
var nestedKeys = map[string]string{
	"redisAddr":     "redis.addr",
	"redisDb":       "redis.db",
	"redisPassword": "redis.password",
}

func initParams(cmd *cobra.Command, app *gelfprobe.App) error {
	var bindErr error
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		key := flag.Name
		if nested, ok := nestedKeys[key]; ok {
			key = nested
		}
		if err := viper.BindPFlag(key, flag); err != nil && bindErr == nil {
			bindErr = errors.WithStack(err)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfgFile, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := loadConfigFile(cfgFile); err != nil {
		return err
	}

	// Every field has a flag carrying its default, so decode into an empty struct;
	// decoding over the defaults would keep trailing elements of the default mode list.
	params := &gelfprobe.Params{}
	if err := viper.Unmarshal(params, commonconfig.DecodeHooks(gelfprobe.ModeDecodeHook())); err != nil {
		return errors.WithMessage(err, "error reading parameters")
	}
	app.Params = params
	logging.SetVerbosity(app.Params.Verbosity)
	return nil
}

func loadConfigFile(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return errors.WithMessage(err, "error getting user home directory")
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".gelfprobe")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.MergeInConfig(); err != nil {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
			// Only returned when looking for the default file, which users don't have to create.
		default:
			return errors.WithMessagef(err, "error reading config file %s", viper.ConfigFileUsed())
		}
	}
	return nil
}
