package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "awstrack",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "awstrack",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// Agent cycle metrics
	agentCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "awstrack",
			Subsystem: "agent",
			Name:      "cycles_total",
			Help:      "Total number of agent check cycles",
		},
		[]string{"agent", "status"},
	)

	agentCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "awstrack",
			Subsystem: "agent",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a single agent check cycle in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"agent"},
	)

	agentsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "awstrack",
			Subsystem: "agent",
			Name:      "running_count",
			Help:      "Number of agents currently running",
		},
	)

	// Detection metrics
	flaggedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "awstrack",
			Subsystem: "detector",
			Name:      "flagged_events_total",
			Help:      "Total number of activity events flagged as high risk",
		},
		[]string{"reason"},
	)

	costAnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "awstrack",
			Subsystem: "detector",
			Name:      "cost_anomalies_total",
			Help:      "Total number of cost anomalies classified",
		},
		[]string{"severity"},
	)

	// Dispatcher metrics
	alertsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "awstrack",
			Subsystem: "alerts",
			Name:      "dispatched_total",
			Help:      "Total number of alert channel deliveries",
		},
		[]string{"channel", "status"},
	)

	alertsDedupedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "awstrack",
			Subsystem: "alerts",
			Name:      "deduped_total",
			Help:      "Total number of alerts dropped by the dedup cache",
		},
	)

	// Aggregator metrics
	usersTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "awstrack",
			Subsystem: "analytics",
			Name:      "users_tracked",
			Help:      "Number of distinct users with metrics",
		},
	)

	eventsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "awstrack",
			Subsystem: "analytics",
			Name:      "events_ingested_total",
			Help:      "Total number of activity events folded into user metrics",
		},
	)
)

// RecordCycle records the outcome and duration of one agent check cycle.
func RecordCycle(agent string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	agentCyclesTotal.WithLabelValues(agent, status).Inc()
	agentCycleDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// SetAgentsRunning sets the running agents gauge.
func SetAgentsRunning(n int) {
	agentsRunning.Set(float64(n))
}

// RecordFlaggedEvent records one high-risk activity classification.
func RecordFlaggedEvent(reason string) {
	flaggedEventsTotal.WithLabelValues(reason).Inc()
}

// RecordCostAnomaly records one cost anomaly classification.
func RecordCostAnomaly(severity string) {
	costAnomaliesTotal.WithLabelValues(severity).Inc()
}

// RecordDispatch records one channel delivery attempt.
func RecordDispatch(channel string, ok bool) {
	status := "failure"
	if ok {
		status = "success"
	}
	alertsDispatchedTotal.WithLabelValues(channel, status).Inc()
}

// RecordDeduped records an alert suppressed by the dedup cache.
func RecordDeduped() {
	alertsDedupedTotal.Inc()
}

// SetUsersTracked sets the tracked users gauge.
func SetUsersTracked(n int) {
	usersTracked.Set(float64(n))
}

// RecordEventIngested records one event ingested by the aggregator.
func RecordEventIngested() {
	eventsIngestedTotal.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
