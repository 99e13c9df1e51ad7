package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Lookup(LookupHit)
		m.Loaded(true, 10)
		m.Indexed(3)
		m.RemoteFetch("all", time.Now())
		m.FavoriteMutation("add")
		m.SessionTransition("login")
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Lookup(LookupHit)
	m.Lookup(LookupHit)
	m.Lookup(LookupNotFound)
	m.Loaded(false, 0)
	m.Loaded(true, 250)
	m.FavoriteMutation("remove")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues(LookupHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryLookups.WithLabelValues(LookupNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DirectoryLoads.WithLabelValues("failure")))
	assert.Equal(t, 250.0, testutil.ToFloat64(m.DirectorySize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FavoritesMutations.WithLabelValues("remove")))
}
