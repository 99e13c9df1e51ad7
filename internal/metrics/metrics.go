// Package metrics holds the Prometheus instruments for the directory, the
// favorites store and the session manager.
//
// Every method is safe to call on a nil *Metrics, so components take an
// optional *Metrics and tests can leave it out.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes.
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupNotFound = "not_found"
)

// Metrics provides observability for the core components.
type Metrics struct {
	DirectoryLookups   *prometheus.CounterVec
	DirectoryLoads     *prometheus.CounterVec
	DirectorySize      prometheus.Gauge
	RemoteFetches      *prometheus.CounterVec
	RemoteDuration     prometheus.Histogram
	FavoritesMutations *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
}

// New registers all instruments on reg. Pass prometheus.NewRegistry() in
// tests to avoid collisions on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DirectoryLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "country_explorer_directory_lookups_total",
			Help: "Directory lookups by outcome (hit, miss, not_found)",
		}, []string{"outcome"}),
		DirectoryLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "country_explorer_directory_loads_total",
			Help: "Full directory load attempts by result",
		}, []string{"result"}),
		DirectorySize: f.NewGauge(prometheus.GaugeOpts{
			Name: "country_explorer_directory_countries",
			Help: "Number of countries currently indexed",
		}),
		RemoteFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "country_explorer_remote_fetches_total",
			Help: "Calls to the countries API by operation (all, alpha)",
		}, []string{"op"}),
		RemoteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "country_explorer_remote_fetch_duration_seconds",
			Help:    "Duration of countries API calls, retries included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FavoritesMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "country_explorer_favorites_mutations_total",
			Help: "Persisted favorites changes by operation (add, remove)",
		}, []string{"op"}),
		SessionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "country_explorer_session_transitions_total",
			Help: "Session state changes by event (login, register, logout, expired, invalid, failed)",
		}, []string{"event"}),
	}
}

// Lookup records one directory lookup outcome.
func (m *Metrics) Lookup(outcome string) {
	if m == nil {
		return
	}
	m.DirectoryLookups.WithLabelValues(outcome).Inc()
}

// Loaded records a directory load attempt and, on success, the index size.
func (m *Metrics) Loaded(ok bool, size int) {
	if m == nil {
		return
	}
	if !ok {
		m.DirectoryLoads.WithLabelValues("failure").Inc()
		return
	}
	m.DirectoryLoads.WithLabelValues("success").Inc()
	m.DirectorySize.Set(float64(size))
}

// Indexed sets the current index size.
func (m *Metrics) Indexed(size int) {
	if m == nil {
		return
	}
	m.DirectorySize.Set(float64(size))
}

// RemoteFetch records a countries API call started at start.
func (m *Metrics) RemoteFetch(op string, start time.Time) {
	if m == nil {
		return
	}
	m.RemoteFetches.WithLabelValues(op).Inc()
	m.RemoteDuration.Observe(time.Since(start).Seconds())
}

// FavoriteMutation records a persisted add or remove.
func (m *Metrics) FavoriteMutation(op string) {
	if m == nil {
		return
	}
	m.FavoritesMutations.WithLabelValues(op).Inc()
}

// SessionTransition records a session event.
func (m *Metrics) SessionTransition(event string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(event).Inc()
}
