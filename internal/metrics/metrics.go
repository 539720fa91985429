// Package metrics exposes Prometheus instrumentation for the
// acquisition pipeline and the resolution surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Registry pages fetched across all sync runs
	PagesFetched prometheus.Counter

	// Unit pages scraped, including tasks that failed
	UnitsScraped prometheus.Counter

	// Scrape tasks that yielded a placeholder record
	ScrapeFailures prometheus.Counter

	// Duration of full acquisition runs
	RunDuration prometheus.Histogram

	// Canonical records currently in the directory
	DirectorySize prometheus.Gauge

	// Resolver lookups by resulting channel
	ResolverLookups *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on the given registerer. Tests pass a
// fresh registry so repeated construction does not collide. When reg is
// also a gatherer (any *prometheus.Registry is), Gatherer exposes it for
// the scrape endpoint.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	gatherer, _ := reg.(prometheus.Gatherer)
	return &Metrics{
		gatherer: gatherer,
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "foiadir_registry_pages_fetched_total",
			Help: "Total registry pages fetched across all sync runs",
		}),
		UnitsScraped: factory.NewCounter(prometheus.CounterOpts{
			Name: "foiadir_units_scraped_total",
			Help: "Total unit pages scraped, including failed tasks",
		}),
		ScrapeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "foiadir_scrape_failures_total",
			Help: "Total scrape tasks that yielded a placeholder record",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "foiadir_run_duration_seconds",
			Help:    "Duration of full acquisition runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		DirectorySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foiadir_directory_records",
			Help: "Number of canonical records in the directory",
		}),
		ResolverLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foiadir_resolver_lookups_total",
			Help: "Total resolver lookups by resulting channel",
		}, []string{"channel"}),
	}
}

// Gatherer returns the registry these metrics are registered on, for
// serving a scrape endpoint. A nil *Metrics gathers the default registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil || m.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return m.gatherer
}

// AddPagesFetched records fetched registry pages.
func (m *Metrics) AddPagesFetched(n int) {
	if m != nil {
		m.PagesFetched.Add(float64(n))
	}
}

// AddUnitsScraped records completed scrape tasks.
func (m *Metrics) AddUnitsScraped(n int) {
	if m != nil {
		m.UnitsScraped.Add(float64(n))
	}
}

// AddScrapeFailures records scrape tasks that fell back to a placeholder.
func (m *Metrics) AddScrapeFailures(n int) {
	if m != nil {
		m.ScrapeFailures.Add(float64(n))
	}
}

// ObserveRunDuration records a full acquisition run.
func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}

// SetDirectorySize records the canonical record count.
func (m *Metrics) SetDirectorySize(n int) {
	if m != nil {
		m.DirectorySize.Set(float64(n))
	}
}

// IncResolverLookup records a resolver lookup outcome.
func (m *Metrics) IncResolverLookup(channel string) {
	if m != nil {
		m.ResolverLookups.WithLabelValues(channel).Inc()
	}
}
