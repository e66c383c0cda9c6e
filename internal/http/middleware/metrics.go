package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	httpctx "subnetdash/internal/http/ctx"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subnetdash",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of served API requests.",
		},
		[]string{"endpoint", "method", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "subnetdash",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of API request durations in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint", "method"},
	)
)

// Collectors returns the HTTP metrics for registration by the process root.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{requestsTotal, requestDuration}
}

// Metrics records per-endpoint request counts and latencies. The endpoint
// label is the matched route pattern, so path parameters do not explode
// cardinality. /metrics itself is skipped.
func Metrics(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)

		if string(ctx.Path()) == "/metrics" {
			return
		}
		endpoint := httpctx.Endpoint(ctx)
		method := string(ctx.Method())
		requestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(ctx.Response.StatusCode())).Inc()
		requestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
	}
}
