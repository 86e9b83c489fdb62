package fault

import "github.com/prometheus/client_golang/prometheus"

// MustRegisterMetrics registers the fault resolution metrics on registry.
func MustRegisterMetrics(registry *prometheus.Registry) {
	registry.MustRegister(resolveCounter)
}

func sampleResolve(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	resolveCounter.With(prometheus.Labels{"kind": kind, "status": status}).Inc()
}

var resolveCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "objgraph_fault_resolutions_total",
		Help: "Total of relationship faults resolved against the object context",
	},
	[]string{"kind", "status"},
)
