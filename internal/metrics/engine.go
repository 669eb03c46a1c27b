package metrics

import (
	"context"
	"time"

	"github.com/AdguardTeam/golibs/container"
	"github.com/prometheus/client_golang/prometheus"
)

// Engine is the Prometheus-based implementation of the [urlfilter.Metrics]
// interface.
type Engine struct {
	// tableRules is a gauge with the number of rules claimed by each lookup
	// table of the last built engine.
	tableRules *prometheus.GaugeVec

	// buildDuration is a histogram with the durations of the engine builds.
	buildDuration prometheus.Histogram

	// reloadStatus is a gauge with the status of the last reload.  1 means
	// success.
	reloadStatus prometheus.Gauge

	// reloadTime is a gauge with the time of the last successful reload.
	reloadTime prometheus.Gauge
}

// NewEngine registers the filtering engine metrics in reg and returns a
// properly initialized *Engine.  All arguments must be set.
func NewEngine(namespace string, reg prometheus.Registerer) (m *Engine, err error) {
	const (
		tableRules    = "table_rules_total"
		buildDuration = "build_duration_seconds"
		reloadStatus  = "reload_status"
		reloadTime    = "reload_time"
	)

	m = &Engine{
		tableRules: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:      tableRules,
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Help:      "The number of rules claimed by each lookup table.",
		}, []string{"table"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:      buildDuration,
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Help:      "Time elapsed on building the engine index.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		}),
		reloadStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      reloadStatus,
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Help:      "Status of the last engine reload. 1 means success.",
		}),
		reloadTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      reloadTime,
			Namespace: namespace,
			Subsystem: subsystemEngine,
			Help:      "Time when the engine was last successfully reloaded.",
		}),
	}

	err = register(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   tableRules,
		Value: m.tableRules,
	}, {
		Key:   buildDuration,
		Value: m.buildDuration,
	}, {
		Key:   reloadStatus,
		Value: m.reloadStatus,
	}, {
		Key:   reloadTime,
		Value: m.reloadTime,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// SetTableRulesCount implements the [urlfilter.Metrics] interface for
// *Engine.
func (m *Engine) SetTableRulesCount(_ context.Context, table string, n int) {
	m.tableRules.WithLabelValues(table).Set(float64(n))
}

// ObserveBuild implements the [urlfilter.Metrics] interface for *Engine.
func (m *Engine) ObserveBuild(_ context.Context, dur time.Duration) {
	m.buildDuration.Observe(dur.Seconds())
}

// HandleReload implements the [urlfilter.Metrics] interface for *Engine.
func (m *Engine) HandleReload(_ context.Context, err error) {
	SetStatusGauge(m.reloadStatus, err)
	if err == nil {
		m.reloadTime.SetToCurrentTime()
	}
}
