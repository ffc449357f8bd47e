package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"chatd/internal/chat"
)

const metricsNamespace = "chatd"

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	requestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency, queueing included.",
		// Generations routinely take tens of seconds.
		Buckets: []float64{.01, .05, .25, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"route", "method"})

	openRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "open_requests",
		Help:      "HTTP requests currently being served, queued ones included.",
	})

	rejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "rejected_total",
		Help:      "Completions turned away for capacity, by reason.",
	}, []string{"reason"})

	completionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "completions_total",
		Help:      "Successful completions by finish reason.",
	}, []string{"finish_reason"})

	tokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "chat",
		Name:      "tokens_total",
		Help:      "Tokens processed by successful completions.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestSeconds, openRequests, rejectedTotal, completionsTotal, tokensTotal)
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records request counts and latency. It must be installed
// on the chi router so the route pattern is resolved when it reads it.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		openRequests.Inc()
		defer openRequests.Dec()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)

		route := routeLabel(r)
		requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(sr.status)).Inc()
		requestSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routeLabel prefers the chi route pattern over the raw path so ids in the
// URL do not explode label cardinality. Unmatched paths collapse to one value.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func countRejected(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	rejectedTotal.WithLabelValues(reason).Inc()
}

func countCompletion(res chat.Result) {
	completionsTotal.WithLabelValues(res.FinishReason).Inc()
	tokensTotal.WithLabelValues("prompt").Add(float64(res.PromptTokens))
	tokensTotal.WithLabelValues("completion").Add(float64(res.CompletionTokens))
}
