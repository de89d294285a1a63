package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncVerification("found")
	m.IncVerification("found")
	m.IncVerification("not_found")
	m.IncGeoLookup("http", "hit")
	m.AccessLogsDropped.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verifications.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeoLookups.WithLabelValues("http", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessLogsDropped))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
