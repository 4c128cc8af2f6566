package metrics

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

func outcome(failure bool) Outcome {
	if failure {
		return Error
	}
	return Success
}

var defaultHistogramBucketsSeconds = []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30}

// Collectors are created eagerly so that recording never panics, Init only
// registers them and exposes the endpoint.
var (
	once          sync.Once
	metricsRouter *chi.Mux

	// client requests are the ones sending to other service
	clientRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Histogram of outgoing client request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"baseurl", "method", "path", "status"},
	)

	ledgerOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Histogram of ledger operation durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"operation", "status"},
	)

	tipsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_tips_total",
			Help: "The total number of committed tips",
		},
	)

	pendingFeesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_pending_fees",
			Help: "Fees collected and not yet withdrawn, in base units (approximate)",
		},
	)

	totalVolumeGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_total_volume",
			Help: "Cumulative tipped value, in base units (approximate)",
		},
	)

	buildersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_builders_count",
			Help: "Number of builders that received at least one tip",
		},
	)

	invariantViolationsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_invariant_violations",
			Help: "Number of invariant violations found by the last stats poll",
		},
	)

	// add a counter for the number of errors from the fail to push message into queue
	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when sending messages to the queue",
		},
	)

	unpublishedEventsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_unpublished_events",
			Help: "Number of events found unpublished by the last outbox poll",
		},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_duration_seconds",
			Help:    "Histogram of poller durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"type", "status"},
	)

	scoreProviderResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "score_provider_results_total",
			Help: "Score provider lookups split by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	scoreCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "score_cache_lookups_total",
			Help: "Score cache lookups split by result",
		},
		[]string{"result"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_latency_seconds",
			Help:    "DB latency in seconds splitted by method and execution status",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		registerMetrics()
		initMetricsRouter(metricsPort)
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics registers the Prometheus collectors.
func registerMetrics() {
	prometheus.MustRegister(
		clientRequestDurationHistogram,
		ledgerOperationDuration,
		tipsCounter,
		pendingFeesGauge,
		totalVolumeGauge,
		buildersGauge,
		invariantViolationsGauge,
		queueSendErrorCounter,
		unpublishedEventsGauge,
		pollerDurationHistogram,
		scoreProviderResults,
		scoreCacheLookups,
		dbLatency,
	)
}

// RecordLedgerOperation is meant to be deferred with the start time and a
// pointer to the named error result of the operation.
func RecordLedgerOperation(operation string, start time.Time, errp *error) {
	failure := errp != nil && *errp != nil
	ledgerOperationDuration.WithLabelValues(operation, outcome(failure).String()).
		Observe(time.Since(start).Seconds())
}

func IncTips() {
	tipsCounter.Inc()
}

func RecordLedgerState(pendingFees, totalVolume math.Uint, builders int) {
	pendingFeesGauge.Set(toFloat(pendingFees))
	totalVolumeGauge.Set(toFloat(totalVolume))
	buildersGauge.Set(float64(builders))
}

func RecordInvariantViolations(count int) {
	invariantViolationsGauge.Set(float64(count))
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	dbLatency.WithLabelValues(method, outcome(failure).String()).Observe(d.Seconds())
}

func RecordUnpublishedEvents(count int) {
	unpublishedEventsGauge.Set(float64(count))
}

func RecordScoreProviderResult(provider string, failure bool) {
	scoreProviderResults.WithLabelValues(provider, outcome(failure).String()).Inc()
}

func RecordScoreCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	scoreCacheLookups.WithLabelValues(result).Inc()
}

// StartClientRequestDurationTimer starts a timer to measure outgoing client request duration.
func StartClientRequestDurationTimer(baseUrl, method, path string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		clientRequestDurationHistogram.WithLabelValues(
			baseUrl,
			method,
			path,
			strconv.Itoa(statusCode),
		).Observe(duration)
	}
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}

// toFloat converts a 256-bit amount for gauges, precision loss is accepted.
func toFloat(u math.Uint) float64 {
	f, _ := new(big.Float).SetInt(u.BigInt()).Float64()
	return f
}
