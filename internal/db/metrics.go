package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "subnetdash",
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Duration of results-store queries in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"query"},
	)
	queryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subnetdash",
			Subsystem: "store",
			Name:      "query_errors_total",
			Help:      "Total number of failed results-store queries.",
		},
		[]string{"query"},
	)
)

// Collectors returns the store metrics for registration by the process root.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{queryDuration, queryErrors}
}

func observeQuery(name string, d time.Duration, err error) {
	queryDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		queryErrors.WithLabelValues(name).Inc()
	}
}
