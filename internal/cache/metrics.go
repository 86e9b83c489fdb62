package cache

import "github.com/prometheus/client_golang/prometheus"

// MustRegisterMetrics registers the query cache metrics on registry.
// It panics if metrics with the same names are already registered.
func MustRegisterMetrics(registry *prometheus.Registry) {
	registry.MustRegister(lookupCounter, fetchCounter, entriesGauge)
}

func sampleLookup(name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	lookupCounter.With(prometheus.Labels{"name": name, "result": result}).Inc()
}

func sampleFetch(name, kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	fetchCounter.With(prometheus.Labels{"name": name, "kind": kind, "status": status}).Inc()
}

var (
	lookupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objgraph_query_cache_lookups_total",
			Help: "Total of query cache lookups",
		},
		[]string{"name", "result"},
	)
	fetchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objgraph_query_cache_fetches_total",
			Help: "Total of factory runs populating the query cache",
		},
		[]string{"name", "kind", "status"},
	)
	entriesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "objgraph_query_cache_entries",
			Help: "Number of cached query results",
		},
		[]string{"name"},
	)
)
