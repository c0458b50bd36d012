package polarion

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polarion_node_requests_total",
			Help: "Requests sent to Polarion, by method and status code (0 when no response)",
		},
		[]string{"method", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polarion_node_request_duration_seconds",
			Help:    "Duration of Polarion requests including transport retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polarion_node_dispatch_total",
			Help: "Dispatched items by resource, operation and outcome",
		},
		[]string{"resource", "operation", "outcome"},
	)

	recordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polarion_node_records_total",
			Help: "Output records produced, by resource",
		},
		[]string{"resource"},
	)
)

func recordRequest(method string, statusCode int, duration time.Duration) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func recordDispatch(resource Resource, op Operation, outcome string, records int) {
	dispatchTotal.WithLabelValues(string(resource), string(op), outcome).Inc()
	if records > 0 {
		recordsTotal.WithLabelValues(string(resource)).Add(float64(records))
	}
}
