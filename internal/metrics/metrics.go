// Package metrics contains the Prometheus-based implementations of the
// statistics interfaces of the filtering engine, the rule storage, and the
// declarative converter.
package metrics

import (
	"fmt"

	"github.com/AdguardTeam/golibs/container"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the default namespace of the metrics.
const Namespace = "urlfilter"

// constants with the subsystem names that we use in our prometheus metrics.
const (
	subsystemConverter = "converter"
	subsystemEngine    = "engine"
	subsystemStorage   = "storage"
)

// BoolString returns "1" if cond is true and "0" otherwise.
func BoolString(cond bool) (s string) {
	if cond {
		return "1"
	}

	return "0"
}

// SetStatusGauge is a helper function that automatically checks if there's an
// error and sets the gauge to either 1 (success) or 0 (error).
func SetStatusGauge(gauge prometheus.Gauge, err error) {
	if err == nil {
		gauge.Set(1)
	} else {
		gauge.Set(0)
	}
}

// register registers collectors in reg.
func register(
	reg prometheus.Registerer,
	collectors container.KeyValues[string, prometheus.Collector],
) (err error) {
	var errs []error
	for _, c := range collectors {
		err = reg.Register(c.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("registering metrics %q: %w", c.Key, err))
		}
	}

	return errors.Join(errs...)
}
