package filterlist

// Metrics is an interface that is used for the collection of the rule storage
// statistics.
type Metrics interface {
	// IncrementLookups increments the number of rule cache lookups.  hit is
	// true if the rule was found in the cache.
	IncrementLookups(hit bool)

	// IncrementRetrievalErrors increments the number of rules that could not
	// be retrieved by their indexes.
	IncrementRetrievalErrors()
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// IncrementLookups implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) IncrementLookups(_ bool) {}

// IncrementRetrievalErrors implements the [Metrics] interface for
// EmptyMetrics.
func (EmptyMetrics) IncrementRetrievalErrors() {}
