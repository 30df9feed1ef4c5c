package monitoring

import (
	"strconv"
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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 引擎侧指标
	LogicEvaluations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_logic_evaluations_total",
			Help: "Total number of conditional logic evaluations",
		},
	)

	SuspiciousResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_suspicious_responses_total",
			Help: "Total number of responses flagged as suspicious",
		},
	)

	ReportsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_reports_generated_total",
			Help: "Total number of aggregate reports generated",
		},
		[]string{"cache"}, // hit / miss
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(LogicEvaluations)
	prometheus.MustRegister(SuspiciousResponses)
	prometheus.MustRegister(ReportsGenerated)
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
