package metrics

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const MetricPrefix = "gelfprobe_"

type Metrics struct {
	sentCounter      *prometheus.CounterVec
	failedCounter    *prometheus.CounterVec
	sendDuration     *prometheus.HistogramVec
	validatedGauge   *prometheus.GaugeVec
	deliveryRatio    *prometheus.GaugeVec
	drainWaitSeconds *prometheus.GaugeVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		sentCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPrefix + "messages_sent_total",
			Help: "Number of messages handed to the transport without error, grouped by mode",
		}, []string{"mode"}),
		failedCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPrefix + "messages_failed_total",
			Help: "Number of messages the transport failed to deliver, grouped by mode",
		}, []string{"mode"}),
		sendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricPrefix + "send_duration_seconds",
			Help:    "Wall clock time of a single send attempt, grouped by mode",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"mode"}),
		validatedGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricPrefix + "messages_validated",
			Help: "Number of messages of the most recent run found by search, grouped by mode",
		}, []string{"mode"}),
		deliveryRatio: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricPrefix + "delivery_ratio",
			Help: "Validated/sent percentage of the most recent run, grouped by mode",
		}, []string{"mode"}),
		drainWaitSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricPrefix + "drain_wait_seconds",
			Help: "Time spent waiting for ingestion to drain in the most recent run, grouped by mode",
		}, []string{"mode"}),
	}
}

func (m *Metrics) RecordSend(mode string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.sendDuration.With(map[string]string{"mode": mode}).Observe(duration.Seconds())
	if err != nil {
		m.failedCounter.With(map[string]string{"mode": mode}).Inc()
	} else {
		m.sentCounter.With(map[string]string{"mode": mode}).Inc()
	}
}

func (m *Metrics) RecordValidation(mode string, validated int64, ratio float64) {
	if m == nil {
		return
	}
	m.validatedGauge.With(map[string]string{"mode": mode}).Set(float64(validated))
	m.deliveryRatio.With(map[string]string{"mode": mode}).Set(ratio)
}

func (m *Metrics) RecordDrainWait(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.drainWaitSeconds.With(map[string]string{"mode": mode}).Set(d.Seconds())
}

// ExposeMetrics serves /metrics for gatherer on port in the background.
// The returned function shuts the server down.
func ExposeMetrics(port int, gatherer prometheus.Gatherer) (func(), error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, errors.WithMessagef(err, "error listening for metrics on port %d", port)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.Infof("serving metrics on %s/metrics", listener.Addr())
	return func() {
		if err := server.Close(); err != nil {
			log.WithError(err).Warn("error closing metrics server")
		}
	}, nil
}
