package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry builds the registry exposed on /metrics.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Upstream records calls made to the weather provider.
type Upstream struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewUpstream registers the upstream collectors on reg.
func NewUpstream(reg prometheus.Registerer) *Upstream {
	u := &Upstream{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_upstream_requests_total",
			Help: "Weather API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_upstream_request_duration_seconds",
			Help:    "Weather API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(u.requests, u.duration)
	return u
}

// Observe is safe to call on a nil receiver.
func (u *Upstream) Observe(operation string, started time.Time, err error) {
	if u == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	u.requests.WithLabelValues(operation, outcome).Inc()
	u.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
