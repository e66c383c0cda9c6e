package overview

import (
	"github.com/prometheus/client_golang/prometheus"
)

var environmentsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "subnetdash",
	Name:      "overview_environments",
	Help:      "Number of environment columns in the overview window at the last read.",
})

// Collectors returns the overview metrics for registration by the process root.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{environmentsGauge}
}
