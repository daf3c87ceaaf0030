// Package metrics exposes Prometheus collectors for the review crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Channel attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

var (
	channelAttemptsTotal       *prometheus.CounterVec
	channelYieldTotal          *prometheus.CounterVec
	rpcPagesTotal              *prometheus.CounterVec
	reviewsSkippedTotal        *prometheus.CounterVec
	selectorMissesTotal        *prometheus.CounterVec
	acquisitionDurationSeconds *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	jobsTotal                  *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	throttleDelaySeconds       *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		channelAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviews_channel_attempts_total",
				Help: "Channel attempts, labeled by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		)

		channelYieldTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviews_channel_yield_total",
				Help: "Reviews kept per channel before merge.",
			},
			[]string{"channel"},
		)

		rpcPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviews_rpc_pages_total",
				Help: "RPC pages fetched, labeled by status.",
			},
			[]string{"status"},
		)

		reviewsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviews_skipped_total",
				Help: "Reviews dropped by data-quality rules, labeled by reason.",
			},
			[]string{"reason"},
		)

		selectorMissesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviews_selector_misses_total",
				Help: "Markup parse stages that fell through every selector, labeled by stage.",
			},
			[]string{"stage"},
		)

		acquisitionDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reviews_acquisition_duration_seconds",
				Help:    "Histogram of end-to-end acquisition latency, labeled by the channel that produced the result.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"channel_used"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviews_jobs_total",
				Help: "Total number of batch jobs processed, labeled by status.",
			},
			[]string{"status"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "reviews_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		throttleDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reviews_throttle_delay_seconds",
				Help:    "Time spent waiting on the shared per-host throttle.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveChannelAttempt records one channel run and how many reviews it kept.
func ObserveChannelAttempt(channel, outcome string, kept int) {
	Init()
	channelAttemptsTotal.WithLabelValues(channel, outcome).Inc()
	if kept > 0 {
		channelYieldTotal.WithLabelValues(channel).Add(float64(kept))
	}
}

// ObserveRPCPage increments the page counter; status is an HTTP code or "decode_empty".
func ObserveRPCPage(status string) {
	Init()
	rpcPagesTotal.WithLabelValues(status).Inc()
}

// ObserveRPCStatus is ObserveRPCPage for a numeric HTTP status.
func ObserveRPCStatus(code int) {
	ObserveRPCPage(strconv.Itoa(code))
}

// ObserveSkipped adds n to the skip counter for reason.
func ObserveSkipped(reason string, n int) {
	if n <= 0 {
		return
	}
	Init()
	reviewsSkippedTotal.WithLabelValues(reason).Add(float64(n))
}

// ObserveSelectorMiss records a parse stage that matched nothing.
func ObserveSelectorMiss(stage string) {
	Init()
	selectorMissesTotal.WithLabelValues(stage).Inc()
}

// ObserveAcquisition records the latency of a full acquisition.
func ObserveAcquisition(channelUsed string, duration time.Duration) {
	Init()
	acquisitionDurationSeconds.WithLabelValues(channelUsed).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveJob increments the job counter for the given status.
func ObserveJob(status string) {
	Init()
	jobsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveThrottleDelay records time spent blocked on the per-host throttle.
func ObserveThrottleDelay(host string, d time.Duration) {
	Init()
	throttleDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}
