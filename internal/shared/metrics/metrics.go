// Package metrics collects Prometheus metrics for the HTTP surface and the
// rendering integration.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the domain services report to.
type Recorder interface {
	RecordRenderingCall(operation, outcome string, duration time.Duration)
	RecordRenderingRetry(operation string)
	RecordUpload(outcome string, bytes int64)
}

// Collector registers and updates the service metrics.
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	renderingCalls   *prometheus.CounterVec
	renderingLatency *prometheus.HistogramVec
	renderingRetries *prometheus.CounterVec
	uploads          *prometheus.CounterVec
	uploadBytes      prometheus.Counter
}

// NewCollector builds a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docviewer_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docviewer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		renderingCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docviewer_rendering_calls_total",
			Help: "Calls to the rendering service by operation and outcome.",
		}, []string{"operation", "outcome"}),
		renderingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docviewer_rendering_call_duration_seconds",
			Help:    "Rendering service call duration in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		renderingRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docviewer_rendering_retries_total",
			Help: "Retried rendering service attempts by operation.",
		}, []string{"operation"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docviewer_uploads_total",
			Help: "Document uploads by outcome.",
		}, []string{"outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docviewer_upload_bytes_total",
			Help: "Bytes accepted by successful uploads.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.renderingCalls,
		c.renderingLatency,
		c.renderingRetries,
		c.uploads,
		c.uploadBytes,
	)
	return c
}

func (c *Collector) RecordRenderingCall(operation, outcome string, duration time.Duration) {
	c.renderingCalls.WithLabelValues(operation, outcome).Inc()
	c.renderingLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordRenderingRetry(operation string) {
	c.renderingRetries.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordUpload(outcome string, bytes int64) {
	c.uploads.WithLabelValues(outcome).Inc()
	if outcome == "success" && bytes > 0 {
		c.uploadBytes.Add(float64(bytes))
	}
}

// Middleware records request counts and latency. Routes are labeled by their
// registered pattern so document ids never become label values.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the gathered metrics in Prometheus text format.
func Handler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordRenderingCall(string, string, time.Duration) {}
func (Nop) RecordRenderingRetry(string)                       {}
func (Nop) RecordUpload(string, int64)                        {}
