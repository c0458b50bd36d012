package operation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	itemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polarion_node_items_total",
			Help: "Input items processed, by node and status",
		},
		[]string{"node", "status"},
	)

	itemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polarion_node_item_duration_seconds",
			Help:    "Duration of a single item execution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polarion_node_runs_total",
			Help: "Runs by node and outcome (completed, aborted)",
		},
		[]string{"node", "outcome"},
	)
)

// recordItem records metrics for one item execution.
func recordItem(node, status string, duration time.Duration) {
	itemsTotal.WithLabelValues(node, status).Inc()
	itemDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// WriteMetricsTextfile writes every metric in the default registry to path
// in the Prometheus text format, for node_exporter's textfile collector.
func WriteMetricsTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
