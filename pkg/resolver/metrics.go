package resolver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the resolution path. A nil *Metrics is a valid no-op,
// so the engine never branches on instrumentation being configured.
type Metrics struct {
	resolveDuration prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	bypasses        prometheus.Counter
}

// NewMetrics registers resolution metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		resolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lodgekit",
			Subsystem: "resolver",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving a user's effective permission set.",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lodgekit",
			Subsystem: "resolver",
			Name:      "cache_hits_total",
			Help:      "Resolutions served from the cache.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lodgekit",
			Subsystem: "resolver",
			Name:      "cache_misses_total",
			Help:      "Resolutions recomputed from the sources.",
		}),
		bypasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lodgekit",
			Subsystem: "resolver",
			Name:      "super_admin_bypasses_total",
			Help:      "Resolutions short-circuited by the super-admin bypass.",
		}),
	}
}

func (m *Metrics) observeResolve(d time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(d.Seconds())
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) cacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) bypass() {
	if m == nil {
		return
	}
	m.bypasses.Inc()
}
