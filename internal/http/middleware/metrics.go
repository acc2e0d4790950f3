// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus HTTP instrumentation for the specials
// API. Transport-level series live here under the specials_api
// namespace; domain counters (claim outcomes, view-event results) are
// owned by the services package. Label cardinality stays bounded by
// labeling with the registered route template, so a hot offer page
// like /api/v1/specials/:id produces a single series no matter how
// many offer IDs are requested.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "specials_api"

var (
	reqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// Latency omits the status label: claim rejections (409) and
	// successes share the same cost profile and splitting them doubles
	// series for no dashboard value.
	reqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	reqInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_inflight",
			Help:      "Requests currently being handled.",
		},
	)

	// Response sizes for a JSON catalogue API: most payloads are a
	// single special or a 20-item page, so buckets are dense below
	// 50KiB and sparse above.
	respSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response sizes by method and route.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20,
			},
		},
		[]string{"method", "path"},
	)
)

// Metrics returns a Gin middleware that feeds the specials_api_http_*
// series. Mount it before the routes it should observe and expose the
// registry via:
//
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// The path label is the registered route template
// (e.g. /api/v1/specials/:id/claim); unmatched requests (404s) fall
// back to the raw URL path. Hijacked or bodyless responses report a
// size of -1 and are skipped in the size histogram.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqInflight.Inc()
		defer reqInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		reqTotal.WithLabelValues(method, path, status).Inc()
		reqDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			respSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
