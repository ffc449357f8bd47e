package gate

import "github.com/prometheus/client_golang/prometheus"

var (
	queueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatd",
		Subsystem: "gate",
		Name:      "queue_depth",
		Help:      "Requests waiting for admission to the engine",
	})

	inflightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatd",
		Subsystem: "gate",
		Name:      "inflight",
		Help:      "Requests holding the engine slot (0 or 1)",
	})

	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "gate",
			Name:      "outcomes_total",
			Help:      "Terminal outcomes of submitted requests",
		},
		[]string{"outcome"},
	)

	waitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chatd",
		Subsystem: "gate",
		Name:      "wait_seconds",
		Help:      "Time from enqueue to admission",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	})

	executionSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chatd",
		Subsystem: "gate",
		Name:      "execution_seconds",
		Help:      "Duration of engine calls",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

// outcome label values
const (
	outcomeCompleted   = "completed"
	outcomeEngineError = "engine_error"
	outcomeCancelled   = "cancelled"
	outcomeTimeout     = "timeout"
	outcomeQueueFull   = "rejected_full"
	outcomeClosed      = "rejected_closed"
	outcomeShutdown    = "shutdown"
	outcomeAbandoned   = "abandoned"
)

func init() {
	prometheus.MustRegister(queueDepthGauge, inflightGauge, outcomesTotal, waitSeconds, executionSeconds)
}
