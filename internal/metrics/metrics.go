// Package metrics defines the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settlement operation names.
const (
	OpSummary  = "summary"
	OpSave     = "save"
	OpComplete = "complete"
)

// Cache request results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	settlementOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripsettle_settlement_operations_total",
		Help: "Settlement engine operations by outcome.",
	}, []string{"operation", "result"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripsettle_settlement_operation_duration_seconds",
		Help:    "Latency of settlement engine operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripsettle_summary_cache_requests_total",
		Help: "Summary cache lookups by result.",
	}, []string{"result"})

	recommendedTransfers = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripsettle_recommended_transfers",
		Help:    "Number of transfers in each recommended plan.",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})
)

// ObserveOperation records the outcome and latency of an engine operation.
func ObserveOperation(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	settlementOperations.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// CacheRequest counts one cache lookup.
func CacheRequest(result string) {
	cacheRequests.WithLabelValues(result).Inc()
}

// ObservePlan records the size of a recommended plan.
func ObservePlan(transfers int) {
	recommendedTransfers.Observe(float64(transfers))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
