package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	tokenExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgerlink",
			Subsystem: "token",
			Name:      "exchanges_total",
			Help:      "Total number of client-credentials exchanges against the token endpoint.",
		},
		[]string{"outcome"},
	)

	tokenExchangeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ledgerlink",
			Subsystem: "token",
			Name:      "exchange_duration_seconds",
			Help:      "Duration of token exchanges.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgerlink",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of resource calls, by transport and outcome.",
		},
		[]string{"transport", "method", "status"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledgerlink",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of resource calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"transport", "method"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ledgerlink",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight proxy requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgerlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the intermediary.",
		},
		[]string{"method", "status"},
	)
)

func init() {
	Registry.MustRegister(
		tokenExchanges,
		tokenExchangeDuration,
		upstreamRequests,
		upstreamDuration,
		httpInFlight,
		httpRequests,
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordTokenExchange counts one exchange. outcome is "success", "rejected"
// or "transport_error".
func RecordTokenExchange(outcome string, d time.Duration) {
	tokenExchanges.WithLabelValues(outcome).Inc()
	tokenExchangeDuration.Observe(d.Seconds())
}

// RecordUpstream counts one resource call. status 0 means no response was
// received.
func RecordUpstream(transport, method string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	upstreamRequests.WithLabelValues(transport, method, label).Inc()
	upstreamDuration.WithLabelValues(transport, method).Observe(d.Seconds())
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
