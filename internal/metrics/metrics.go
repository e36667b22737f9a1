package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

var (
	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remindmail",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of processed HTTP requests",
	}, []string{"method", "route", "status"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "remindmail",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution of HTTP handlers",
		Buckets:   histogramBuckets,
	}, []string{"method", "route", "status"})

	// QueryRetries counts retried database round-trips by operation
	QueryRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remindmail",
		Subsystem: "db",
		Name:      "query_retries_total",
		Help:      "Database operations retried after a transient failure",
	}, []string{"op"})

	// EmailsSent counts email deliveries by kind (confirmation, reminder) and result
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remindmail",
		Subsystem: "email",
		Name:      "sent_total",
		Help:      "Emails handed to the delivery provider",
	}, []string{"kind", "result"})

	// SweepRuns counts sweep invocations
	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "remindmail",
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Number of reminder sweeps executed",
	})

	// SweepDue tracks how many reminders the last sweep found due
	SweepDue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "remindmail",
		Subsystem: "sweep",
		Name:      "due_reminders",
		Help:      "Reminders found due by the most recent sweep",
	})

	// RateLimitHits counts rejected submissions
	RateLimitHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remindmail",
		Subsystem: "http",
		Name:      "rate_limit_hits_total",
		Help:      "Number of rate-limited responses",
	}, []string{"route"})
)

// Middleware records request counts and latency per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		requestTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		requestLatency.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
