package trainerroad

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	upstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coachsync",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Upstream calls grouped by endpoint path and classified outcome.",
	}, []string{"endpoint", "outcome"})

	upstreamLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "coachsync",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of upstream calls per endpoint path.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(upstreamRequests, upstreamLatency)
}

func observeRequest(endpoint, outcome string, elapsed time.Duration) {
	upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	upstreamLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func outcomeForStatus(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "ok"
	case status >= 300 && status < 400:
		return "redirect"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "unauthorized"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "upstream_error"
	}
}

func outcomeForError(err error) string {
	if errors.Is(classifyTransportError(err), ErrTimeout) {
		return "timeout"
	}
	return "transport_error"
}
