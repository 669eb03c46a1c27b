package metrics

import (
	"context"

	"github.com/AdguardTeam/golibs/container"
	"github.com/SukkaW/tsurlfilter-sub001/declarative"
	"github.com/prometheus/client_golang/prometheus"
)

// Converter is the Prometheus-based implementation of the
// [declarative.Metrics] interface.
type Converter struct {
	// rules is a counter with the number of the processed text rules by the
	// result of their conversion.
	rules *prometheus.CounterVec

	converted   prometheus.Counter
	limitations prometheus.Counter
	errors      prometheus.Counter

	// excluded is a counter with the number of the text rules disabled by
	// $badfilter rules.  These are also counted as limitations.
	excluded prometheus.Counter

	// duration is a histogram with the durations of the filter conversions.
	duration prometheus.Histogram
}

// NewConverter registers the declarative converter metrics in reg and returns
// a properly initialized *Converter.  All arguments must be set.
func NewConverter(namespace string, reg prometheus.Registerer) (m *Converter, err error) {
	const (
		rules    = "rules_total"
		excluded = "excluded_rules_total"
		duration = "filter_duration_seconds"
	)

	rulesVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      rules,
		Namespace: namespace,
		Subsystem: subsystemConverter,
		Help:      "The number of processed text rules by the result of the conversion.",
	}, []string{"result"})

	m = &Converter{
		rules:       rulesVec,
		converted:   rulesVec.WithLabelValues("converted"),
		limitations: rulesVec.WithLabelValues("limitation"),
		errors:      rulesVec.WithLabelValues("error"),
		excluded: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      excluded,
			Namespace: namespace,
			Subsystem: subsystemConverter,
			Help:      "The number of text rules disabled by $badfilter rules.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:      duration,
			Namespace: namespace,
			Subsystem: subsystemConverter,
			Help:      "Time elapsed on converting a single filter.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		}),
	}

	err = register(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   rules,
		Value: m.rules,
	}, {
		Key:   excluded,
		Value: m.excluded,
	}, {
		Key:   duration,
		Value: m.duration,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// HandleFilterConversion implements the [declarative.Metrics] interface for
// *Converter.
func (m *Converter) HandleFilterConversion(_ context.Context, fm *declarative.FilterMetrics) {
	m.converted.Add(float64(fm.Converted))
	m.limitations.Add(float64(fm.Limitations))
	m.errors.Add(float64(fm.Errors))
	m.excluded.Add(float64(fm.Excluded))
	m.duration.Observe(fm.Duration.Seconds())
}
