package access

import "github.com/prometheus/client_golang/prometheus"

// MustRegisterMetrics registers the data domain metrics on registry.
func MustRegisterMetrics(registry *prometheus.Registry) {
	registry.MustRegister(queryCounter, rowCounter)
}

func sampleQuery(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	queryCounter.With(prometheus.Labels{"kind": kind, "status": status}).Inc()
}

func sampleRows(op string, n int) {
	rowCounter.With(prometheus.Labels{"op": op}).Add(float64(n))
}

var (
	queryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objgraph_domain_queries_total",
			Help: "Total of queries run against the database",
		},
		[]string{"kind", "status"},
	)
	rowCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objgraph_domain_rows_total",
			Help: "Total of rows fetched, inserted, updated and deleted",
		},
		[]string{"op"},
	)
)
