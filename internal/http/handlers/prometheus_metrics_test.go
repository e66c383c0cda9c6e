package handlers

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "subnetdash_test_total", Help: "test"})
	require.NoError(t, InitPrometheusMetrics(reg, counter))
	counter.Add(3)

	ctx := do(MetricsHandler(reg), fasthttp.MethodGet, "/metrics", nil, nil)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Header.ContentType()), "text/plain")
	assert.Contains(t, string(ctx.Response.Body()), "subnetdash_test_total 3")
	assert.Equal(t, "no-store", string(ctx.Response.Header.Peek("Cache-Control")))
}

func TestMetricsHandlerPrefixFilter(t *testing.T) {
	reg := prometheus.NewRegistry()
	keep := prometheus.NewGauge(prometheus.GaugeOpts{Name: "subnetdash_keep", Help: "keep"})
	drop := prometheus.NewGauge(prometheus.GaugeOpts{Name: "other_drop", Help: "drop"})
	require.NoError(t, InitPrometheusMetrics(reg, keep, drop))

	ctx := do(MetricsHandler(reg), fasthttp.MethodGet, "/metrics?prefix=subnetdash_", nil, nil)

	body := string(ctx.Response.Body())
	assert.Contains(t, body, "subnetdash_keep")
	assert.NotContains(t, body, "other_drop")
}

func TestInitPrometheusMetricsRejectsDuplicates(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})
	require.NoError(t, InitPrometheusMetrics(reg, c))
	assert.Error(t, InitPrometheusMetrics(reg, c))
}
