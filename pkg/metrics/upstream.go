package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics records latency and outcome of calls to external APIs.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewUpstreamMetrics registers the upstream metrics on the provided registerer.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of upstream API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Upstream API calls by status.",
	}, []string{"method", "endpoint", "status"})
	reg.MustRegister(duration, requests)
	return &UpstreamMetrics{
		duration: duration,
		requests: requests,
	}
}

// ObserveUpstream records one round trip. Status 0 marks a transport failure.
func (u *UpstreamMetrics) ObserveUpstream(method, endpoint string, status int, elapsed time.Duration) {
	if u == nil || u.duration == nil {
		return
	}
	method = normalizeLabel(method)
	endpoint = normalizeLabel(endpoint)
	u.duration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
	u.requests.WithLabelValues(method, endpoint, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
