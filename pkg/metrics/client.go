package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records request outcomes for the outbound API pipeline.
// A nil receiver or nil registerer disables recording.
type ClientMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	refresh  *prometheus.CounterVec
	retries  prometheus.Counter
}

// NewClientMetrics registers the client metrics on the provided registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_request_duration_seconds",
		Help:    "Duration of storefront API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_requests_total",
		Help: "Storefront API requests by outcome code.",
	}, []string{"resource", "code"})
	refresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_token_refresh_total",
		Help: "Access token refresh attempts by result.",
	}, []string{"result"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_auth_retries_total",
		Help: "Requests replayed after a token refresh.",
	})
	reg.MustRegister(duration, requests, refresh, retries)
	return &ClientMetrics{
		duration: duration,
		requests: requests,
		refresh:  refresh,
		retries:  retries,
	}
}

// ObserveRequest records one finished request for the named resource.
func (c *ClientMetrics) ObserveRequest(resource, code string, elapsed time.Duration) {
	if c == nil || c.requests == nil {
		return
	}
	c.requests.WithLabelValues(normalizeLabel(resource), normalizeLabel(code)).Inc()
	c.duration.WithLabelValues(normalizeLabel(resource)).Observe(elapsed.Seconds())
}

// IncRefresh counts a token refresh attempt; result is "success" or "failure".
func (c *ClientMetrics) IncRefresh(result string) {
	if c == nil || c.refresh == nil {
		return
	}
	c.refresh.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncAuthRetry counts a request replayed after refresh.
func (c *ClientMetrics) IncAuthRetry() {
	if c == nil || c.retries == nil {
		return
	}
	c.retries.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
