package metrics

import (
	"github.com/AdguardTeam/golibs/container"
	"github.com/prometheus/client_golang/prometheus"
)

// Storage is the Prometheus-based implementation of the [filterlist.Metrics]
// interface.
type Storage struct {
	// cacheLookups is a counter with the total number of the rule cache
	// lookups.  "hit" is "1" if the rule was found in the cache, otherwise it
	// is "0".
	cacheLookups *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// retrievalErrors is a counter with the number of the rules that could
	// not be retrieved by their indexes.
	retrievalErrors prometheus.Counter
}

// NewStorage registers the rule storage metrics in reg and returns a properly
// initialized *Storage.  All arguments must be set.
func NewStorage(namespace string, reg prometheus.Registerer) (m *Storage, err error) {
	const (
		cacheLookups    = "cache_lookups_total"
		retrievalErrors = "retrieval_errors_total"
	)

	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      cacheLookups,
		Namespace: namespace,
		Subsystem: subsystemStorage,
		Help: "The number of rule cache lookups. " +
			"hit=1 means that a cached rule was found.",
	}, []string{"hit"})

	m = &Storage{
		cacheLookups: lookups,
		cacheHits:    lookups.WithLabelValues(BoolString(true)),
		cacheMisses:  lookups.WithLabelValues(BoolString(false)),
		retrievalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      retrievalErrors,
			Namespace: namespace,
			Subsystem: subsystemStorage,
			Help:      "The number of rules that could not be retrieved by their indexes.",
		}),
	}

	err = register(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   cacheLookups,
		Value: m.cacheLookups,
	}, {
		Key:   retrievalErrors,
		Value: m.retrievalErrors,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// IncrementLookups implements the [filterlist.Metrics] interface for
// *Storage.
func (m *Storage) IncrementLookups(hit bool) {
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// IncrementRetrievalErrors implements the [filterlist.Metrics] interface for
// *Storage.
func (m *Storage) IncrementRetrievalErrors() {
	m.retrievalErrors.Inc()
}
