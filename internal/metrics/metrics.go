package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meowmeowtoast/yangyu-report/pkg/cache"
	"github.com/meowmeowtoast/yangyu-report/pkg/monitoring"
)

// Metrics bundles the service-specific collectors
type Metrics struct {
	IngestFiles    *prometheus.CounterVec
	IngestRows     *prometheus.CounterVec
	IngestDuration *prometheus.HistogramVec

	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections *prometheus.GaugeVec

	PreviewLookups *prometheus.CounterVec
}

// New registers the service metrics on the shared collector
func New(collector *monitoring.MetricsCollector) *Metrics {
	m := &Metrics{}

	m.IngestFiles, m.IngestRows, m.IngestDuration = collector.CreateIngestMetrics()
	m.DBQueries, m.DBDuration, m.DBConnections = collector.CreateDatabaseMetrics()
	m.PreviewLookups = collector.NewCounter("preview_lookups_total",
		"Preview image lookups", []string{"outcome"})

	return m
}

// ObserveDBQuery records one store operation on the query counter and
// duration histogram. Nil-safe so stores can run without metrics in tests.
func (m *Metrics) ObserveDBQuery(queryType string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DBQueries.WithLabelValues(queryType, status).Inc()
	m.DBDuration.WithLabelValues(queryType).Observe(elapsed.Seconds())
}

// SetDBConnections updates the open-connection gauge for one backend
func (m *Metrics) SetDBConnections(database string, open int) {
	if m == nil {
		return
	}
	m.DBConnections.WithLabelValues(database).Set(float64(open))
}

// PreviewHooks adapts the preview cache events onto the lookup counter
func (m *Metrics) PreviewHooks() cache.MetricsHooks {
	if m == nil {
		return cache.MetricsHooks{}
	}
	return cache.MetricsHooks{
		OnHit: func(map[string]string) {
			m.PreviewLookups.WithLabelValues("hit").Inc()
		},
		OnMiss: func(map[string]string) {
			m.PreviewLookups.WithLabelValues("miss").Inc()
		},
		OnError: func(map[string]string) {
			m.PreviewLookups.WithLabelValues("error").Inc()
		},
	}
}
