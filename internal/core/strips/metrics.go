package strips

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the strip lookup counters. A nil *Metrics records nothing.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	Scrapes          *prometheus.CounterVec
	ScrapeDuration   *prometheus.HistogramVec
	StaleServed      *prometheus.CounterVec
	CacheWriteErrors *prometheus.CounterVec
	LatestAdvances   prometheus.Counter
}

// NewMetrics registers the strip metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_cache_lookups_total",
				Help: "Cache lookups by data kind and result (fresh, stale, miss, error)",
			},
			[]string{"kind", "result"},
		),
		Scrapes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_scrapes_total",
				Help: "Source scrapes by data kind and result (ok, not_found, error)",
			},
			[]string{"kind", "result"},
		),
		ScrapeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viewer_scrape_duration_seconds",
				Help:    "Source scrape duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		StaleServed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_stale_served_total",
				Help: "Stale cache entries served because the scrape failed",
			},
			[]string{"kind"},
		),
		CacheWriteErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_cache_write_errors_total",
				Help: "Failed best-effort cache writes",
			},
			[]string{"kind"},
		),
		LatestAdvances: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "viewer_latest_date_advances_total",
				Help: "Times a request observed a strip newer than the cached latest date",
			},
		),
	}
}

func (m *Metrics) cacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) scrape(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Scrapes.WithLabelValues(kind, result).Inc()
	m.ScrapeDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) staleServed(kind string) {
	if m == nil {
		return
	}
	m.StaleServed.WithLabelValues(kind).Inc()
}

func (m *Metrics) cacheWriteError(kind string) {
	if m == nil {
		return
	}
	m.CacheWriteErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) latestAdvanced() {
	if m == nil {
		return
	}
	m.LatestAdvances.Inc()
}
