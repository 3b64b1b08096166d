package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assignment_attempts_started_total",
			Help: "Attempts successfully opened",
		},
	)

	Submissions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assignment_submissions_total",
			Help: "Attempts successfully submitted and graded",
		},
	)

	LifecycleRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_lifecycle_rejections_total",
			Help: "Start/submit requests rejected by a lifecycle rule",
		},
		[]string{"reason"},
	)

	LifecycleRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_lifecycle_retries_total",
			Help: "Transactions retried after a concurrency conflict",
		},
		[]string{"operation"},
	)

	ScoreRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assignment_submission_score_ratio",
			Help:    "Score obtained divided by the maximum reachable score",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			Submissions,
			LifecycleRejections,
			LifecycleRetries,
			ScoreRatio,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
