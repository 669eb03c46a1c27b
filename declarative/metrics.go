package declarative

import (
	"context"
	"time"
)

// FilterMetrics are the statistics of the conversion of a single filter.
type FilterMetrics struct {
	// Duration is the time spent on the conversion.
	Duration time.Duration

	// Converted is the number of the converted text rules.
	Converted int

	// Limitations is the number of the text rules that were not converted.
	Limitations int

	// Errors is the number of the text rules that could not be converted.
	Errors int

	// Excluded is the number of the text rules disabled by $badfilter rules.
	Excluded int
}

// Metrics is an interface for the collection of the conversion statistics.
type Metrics interface {
	// HandleFilterConversion handles the statistics of the conversion of a
	// single filter.  m must not be nil.
	HandleFilterConversion(ctx context.Context, m *FilterMetrics)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// HandleFilterConversion implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) HandleFilterConversion(_ context.Context, _ *FilterMetrics) {}
