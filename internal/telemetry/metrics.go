// Package telemetry holds the process's own Prometheus metrics, exposed
// on /metrics by the API server.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// QueriesTotal counts executed signal queries by operation and outcome.
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_explorer_queries_total",
		Help: "Signal queries executed",
	}, []string{"operation", "status"})

	// QueryDuration tracks end-to-end signal query latency by operation.
	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signal_explorer_query_duration_seconds",
		Help:    "Signal query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"operation"})

	// CatalogRefreshTotal counts catalog refreshes by provider and outcome.
	CatalogRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_explorer_catalog_refresh_total",
		Help: "Catalog refresh attempts",
	}, []string{"provider", "status"})

	// CacheOperationsTotal counts catalog cache operations served over the API.
	CacheOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_explorer_catalog_cache_operations_total",
		Help: "Catalog cache operations",
	}, []string{"cache", "operation"})

	// LiveTailClients is the number of connected live tail websockets.
	LiveTailClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signal_explorer_livetail_clients",
		Help: "Connected live tail clients",
	})
)

func init() {
	prometheus.MustRegister(
		QueriesTotal, QueryDuration, CatalogRefreshTotal, CacheOperationsTotal,
		LiveTailClients,
	)
}
