package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loadgen_messages_sent_total",
			Help: "Total number of messages written to the target",
		},
	)

	RepliesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loadgen_replies_received_total",
			Help: "Total number of replies read from the target",
		},
	)

	WorkerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadgen_worker_errors_total",
			Help: "Workers aborted by a connection failure, by stage",
		},
		[]string{"stage"},
	)

	ActiveWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loadgen_active_workers",
			Help: "Number of workers currently holding a connection",
		},
	)

	RoundTrip = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loadgen_round_trip_seconds",
			Help:    "Round trip time from send to reply",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loadgen_run_duration_seconds",
			Help:    "Wall clock time of a whole batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loadgen_queue_depth",
			Help: "Current RabbitMQ queue depth",
		},
		[]string{"queue"},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(RepliesReceived)
	prometheus.MustRegister(WorkerErrors)
	prometheus.MustRegister(ActiveWorkers)
	prometheus.MustRegister(RoundTrip)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(QueueDepth)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
