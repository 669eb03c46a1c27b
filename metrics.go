package urlfilter

import (
	"context"
	"time"
)

// Names of the lookup tables as reported to [Metrics].
const (
	TableNameShortcuts = "shortcuts"
	TableNameTrie      = "trie"
	TableNameDomains   = "domains"
	TableNameSeqScan   = "seqscan"
	TableNameCosmetic  = "cosmetic"
)

// Metrics is an interface that is used for the collection of the filtering
// engine statistics.
type Metrics interface {
	// SetTableRulesCount sets the number of rules claimed by the lookup table
	// with the given name.
	SetTableRulesCount(ctx context.Context, table string, n int)

	// ObserveBuild records the duration of building an engine.
	ObserveBuild(ctx context.Context, dur time.Duration)

	// HandleReload records the status of a [Holder] reload.  err is nil if
	// the new engine has been installed.
	HandleReload(ctx context.Context, err error)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// SetTableRulesCount implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) SetTableRulesCount(_ context.Context, _ string, _ int) {}

// ObserveBuild implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveBuild(_ context.Context, _ time.Duration) {}

// HandleReload implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) HandleReload(_ context.Context, _ error) {}
