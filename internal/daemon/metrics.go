package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the process-wide Prometheus metrics sink the dispatcher
// records every verb dispatch into and the management verb "metrics"
// renders as text.
type Metrics struct {
	Registry *prometheus.Registry

	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	BreakerState     *prometheus.GaugeVec
	ActiveConns      prometheus.Gauge
}

// NewMetrics builds a Metrics sink registered against a fresh registry, so
// multiple daemons in the same process (as in tests) don't collide on the
// default global registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gofer",
			Name:      "dispatch_total",
			Help:      "Total tool dispatches by verb and outcome.",
		}, []string{"verb", "outcome"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gofer",
			Name:      "dispatch_duration_seconds",
			Help:      "Tool dispatch latency by verb.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"verb"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gofer",
			Name:      "cache_hits_total",
			Help:      "Result cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gofer",
			Name:      "cache_misses_total",
			Help:      "Result cache misses.",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gofer",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half_open) by breaker name.",
		}, []string{"breaker"}),
		ActiveConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gofer",
			Name:      "active_connections",
			Help:      "Currently open stream-socket connections.",
		}),
	}

	reg.MustRegister(m.DispatchTotal, m.DispatchDuration, m.CacheHits, m.CacheMisses, m.BreakerState, m.ActiveConns)
	return m
}

// RecordDispatch records one tool dispatch's outcome and latency.
func (m *Metrics) RecordDispatch(verb string, success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.DispatchTotal.WithLabelValues(verb, outcome).Inc()
	m.DispatchDuration.WithLabelValues(verb).Observe(seconds)
}

// SetBreakerState records a breaker's numeric state (0/1/2) for the gauge.
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}
