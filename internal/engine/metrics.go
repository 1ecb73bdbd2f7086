package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ampd",
			Subsystem: "engine",
			Name:      "loads_total",
			Help:      "Resource load attempts by outcome",
		},
		[]string{"resource", "status"},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ampd",
			Subsystem: "engine",
			Name:      "load_duration_seconds",
			Help:      "Duration of successful resource loads",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	requestsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ampd",
			Subsystem: "engine",
			Name:      "requests_dropped_total",
			Help:      "Set requests dropped because a load was already in flight",
		},
	)

	blocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ampd",
			Subsystem: "engine",
			Name:      "blocks_total",
			Help:      "Audio blocks processed",
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, requestsDropped, blocksTotal)
}
