package queue

import "github.com/prometheus/client_golang/prometheus"

// Collectors for the Redis task queues that carry post-sale work. A growing
// depth on the receipt kind means receipts lag behind committed sales; a
// non-empty DLQ needs an operator to look at the poisoned tasks.
var (
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pos",
			Name:      "queue_depth",
			Help:      "Ready tasks waiting per kind, sampled by the worker.",
		},
		[]string{"kind"},
	)
	QueueProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pos",
			Name:      "queue_processed_total",
			Help:      "Tasks processed per kind and outcome.",
		},
		[]string{"kind", "status"},
	)
	QueueDLQSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pos",
			Name:      "queue_dlq_size",
			Help:      "Tasks parked in the dead letter queue per kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(QueueDepth, QueueProcessedTotal, QueueDLQSize)
}
