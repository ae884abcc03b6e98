package user

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

var storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "marquee_store_operations_total",
	Help: "The number of user store operations by outcome",
}, []string{"operation", "outcome"})

var storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "marquee_store_operation_duration_seconds",
	Help:    "The time spent waiting on the document store per operation",
	Buckets: prometheus.DefBuckets,
}, []string{"operation"})

// observe records one store round trip. Use with defer:
//
//	defer observe("add_user", time.Now(), &err)
func observe(operation string, start time.Time, err *error) {
	storeOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	outcome := outcomeSuccess
	if err != nil && *err != nil {
		outcome = outcomeFailure
	}
	storeOperations.WithLabelValues(operation, outcome).Inc()
}
