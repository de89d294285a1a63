package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for verification and access
// logging.
type Metrics struct {
	Verifications     *prometheus.CounterVec
	AccessLogsWritten prometheus.Counter
	AccessLogsDropped prometheus.Counter
	AccessLogFailures prometheus.Counter
	AccessLogQueue    prometheus.Gauge
	GeoLookups        *prometheus.CounterVec
}

// New registers all collectors on reg. main passes the registry that
// /metrics serves; tests pass a fresh one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qrverify_verifications_total",
			Help: "Verification attempts by outcome (found, not_found, store_error)",
		}, []string{"outcome"}),
		AccessLogsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "qrverify_access_logs_written_total",
			Help: "Access log entries persisted",
		}),
		AccessLogsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "qrverify_access_logs_dropped_total",
			Help: "Access log entries dropped because the queue was full",
		}),
		AccessLogFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "qrverify_access_log_failures_total",
			Help: "Access log entries that could not be persisted",
		}),
		AccessLogQueue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qrverify_access_log_queue_depth",
			Help: "Access log entries waiting to be persisted",
		}),
		GeoLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qrverify_geo_lookups_total",
			Help: "Geo lookups by source (cache, maxmind, http, skipped) and result (hit, miss, error)",
		}, []string{"source", "result"}),
	}
}

// NewNop returns collectors registered on a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) IncVerification(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncGeoLookup(source, result string) {
	m.GeoLookups.WithLabelValues(source, result).Inc()
}
