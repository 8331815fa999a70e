package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry      *prometheus.Registry
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	tokenRequests *prometheus.CounterVec
	codesIssued   prometheus.Counter
	revocations   *prometheus.CounterVec
	rateLimited   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinyoauth_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tinyoauth_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.tokenRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinyoauth_token_requests_total",
			Help: "Token requests by grant type and outcome",
		},
		[]string{"grant_type", "result"},
	)

	m.codesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tinyoauth_authorization_codes_issued_total",
		Help: "Authorization codes issued by the authorization endpoint",
	})

	m.revocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinyoauth_token_revocations_total",
			Help: "Revocation requests by outcome",
		},
		[]string{"result"},
	)

	m.rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tinyoauth_rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter",
	})

	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.tokenRequests,
		m.codesIssued,
		m.revocations,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTokenRequest counts a token request. Result is "success" or the
// OAuth error code returned to the client.
func (m *Metrics) RecordTokenRequest(grantType string, result string) {
	m.tokenRequests.WithLabelValues(grantType, result).Inc()
}

func (m *Metrics) RecordCodeIssued() {
	m.codesIssued.Inc()
}

func (m *Metrics) RecordRevocation(result string) {
	m.revocations.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

// Middleware records every request by its route template, unmatched
// routes are grouped under "unmatched".
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())

		m.httpRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
