package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "procura"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	bomTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "bom_status_transitions_total",
			Help:      "BOM status changes by source and target status.",
		},
		[]string{"from", "to"},
	)

	assetsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "assets_created_total",
			Help:      "Assets created from received items.",
		},
		[]string{"source"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Notifications delivered per channel and outcome.",
		},
		[]string{"channel", "success"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs.",
		},
		[]string{"job", "success"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"job"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		bomTransitions,
		assetsCreated,
		notificationsSent,
		jobRuns,
		jobDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted increments the in-flight gauge and returns the matching decrement.
func RequestStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

func ObserveRequest(method, route, status string, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordBomTransition(from, to string) {
	bomTransitions.WithLabelValues(from, to).Inc()
}

func RecordAssetsCreated(source string, n int) {
	if n <= 0 {
		return
	}
	assetsCreated.WithLabelValues(source).Add(float64(n))
}

func RecordNotification(channel string, success bool) {
	notificationsSent.WithLabelValues(channel, boolLabel(success)).Inc()
}

func RecordJobRun(job string, d time.Duration, success bool) {
	jobRuns.WithLabelValues(job, boolLabel(success)).Inc()
	jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
