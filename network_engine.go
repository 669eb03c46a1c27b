package urlfilter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/internal/lookup"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// GenericPrefix describes the shortcuts that are too generic to be indexed by
// the shortcut-style lookup tables.
type GenericPrefix = lookup.GenericPrefix

// ShortcutStrategy is the kind of the lookup table indexing the rule
// shortcuts.  Only one such table is active per engine.
type ShortcutStrategy uint8

// ShortcutStrategy values.
const (
	// StrategyHash indexes fixed-length windows of the shortcuts in a hash
	// table.
	StrategyHash ShortcutStrategy = iota

	// StrategyTrie indexes whole shortcuts in a radix tree.
	StrategyTrie
)

// String implements the [fmt.Stringer] interface for ShortcutStrategy.
func (s ShortcutStrategy) String() (str string) {
	switch s {
	case StrategyHash:
		return "hash"
	case StrategyTrie:
		return "trie"
	default:
		return fmt.Sprintf("!bad_strategy_%d", s)
	}
}

// NetworkEngineConfig is the configuration structure for a [NetworkEngine].
type NetworkEngineConfig struct {
	// Logger is used to log the engine building.  It must not be nil.
	Logger *slog.Logger

	// Metrics is used for the collection of the engine statistics.  It must
	// not be nil.
	Metrics Metrics

	// GenericPrefixes describe the shortcuts which are not indexed by the
	// shortcut-style table.
	GenericPrefixes []GenericPrefix

	// Strategy is the kind of the shortcut-style table.
	Strategy ShortcutStrategy

	// ShortcutLength is the window length of the [StrategyHash] table.  It
	// must be positive.
	ShortcutLength int

	// TrieMinLength is the minimum shortcut length of the [StrategyTrie]
	// table.  It must be positive.
	TrieMinLength int
}

// DefaultNetworkEngineConfig returns the default network engine configuration
// with a discarding logger and no metrics.
func DefaultNetworkEngineConfig() (c *NetworkEngineConfig) {
	return &NetworkEngineConfig{
		Logger:          slogutil.NewDiscardLogger(),
		Metrics:         EmptyMetrics{},
		GenericPrefixes: lookup.DefaultGenericPrefixes,
		Strategy:        StrategyHash,
		ShortcutLength:  lookup.DefaultShortcutLength,
		TrieMinLength:   lookup.DefaultTrieMinLength,
	}
}

// type check
var _ validate.Interface = (*NetworkEngineConfig)(nil)

// Validate implements the [validate.Interface] interface for
// *NetworkEngineConfig.
func (c *NetworkEngineConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotNil("Logger", c.Logger),
	}

	if c.Metrics == nil {
		errs = append(errs, fmt.Errorf("Metrics: %w", errors.ErrNoValue))
	}

	switch c.Strategy {
	case StrategyHash:
		errs = validate.Append(errs, "shortcuts", c.shortcutConfig())
	case StrategyTrie:
		errs = validate.Append(errs, "trie", c.trieConfig())
	default:
		errs = append(errs, fmt.Errorf("Strategy: %w: %s", errors.ErrBadEnumValue, c.Strategy))
	}

	return errors.Join(errs...)
}

// shortcutConfig returns the configuration of the [StrategyHash] table.
func (c *NetworkEngineConfig) shortcutConfig() (sc *lookup.ShortcutConfig) {
	return &lookup.ShortcutConfig{
		GenericPrefixes: c.GenericPrefixes,
		Length:          c.ShortcutLength,
	}
}

// trieConfig returns the configuration of the [StrategyTrie] table.
func (c *NetworkEngineConfig) trieConfig() (tc *lookup.TrieConfig) {
	return &lookup.TrieConfig{
		GenericPrefixes: c.GenericPrefixes,
		MinLength:       c.TrieMinLength,
	}
}

// namedTable is a lookup table along with its name for metrics.
type namedTable struct {
	lookup.Table

	name string
}

// NetworkEngine is the engine that supports quick search over network rules.
type NetworkEngine struct {
	// ruleStorage is a storage for the network rules.  We try to avoid keeping
	// rules.NetworkRule structs in memory so instead of that we use their
	// indexes and retrieve them from the storage when it's needed.
	ruleStorage *filterlist.RuleStorage

	// lookupTables is the array of lookup tables which we need to speed up
	// the matching speed.  Note, that the order of lookup tables is very
	// important, we'll try to add rules to the faster table first.  If it's
	// not eligible for that lookup table, we'll then proceed to a slower one.
	// The last one is always the sequential scan table.
	lookupTables []namedTable

	rulesCount int
}

// NewNetworkEngine builds an instance of the network engine with the default
// configuration.  It scans the specified rule storage and adds all the network
// rules found there to the internal lookup tables.
func NewNetworkEngine(s *filterlist.RuleStorage) (engine *NetworkEngine) {
	return errors.Must(NewNetworkEngineWithConfig(s, DefaultNetworkEngineConfig()))
}

// NewNetworkEngineWithConfig builds an instance of the network engine.  This
// method scans the specified rule storage and adds all the network rules found
// there to the internal lookup tables.
func NewNetworkEngineWithConfig(
	s *filterlist.RuleStorage,
	c *NetworkEngineConfig,
) (engine *NetworkEngine, err error) {
	err = c.Validate()
	if err != nil {
		return nil, fmt.Errorf("network engine configuration: %w", err)
	}

	start := time.Now()

	engine = newNetworkEngine(s, c)
	scanner := s.NewRuleStorageScanner()
	for scanner.Scan() {
		f, idx := scanner.Rule()
		if rule, ok := f.(*rules.NetworkRule); ok {
			engine.addRule(rule, idx)
		}
	}

	// Scanning skips the unreadable lists, so the engine is still usable.
	if err = scanner.Err(); err != nil {
		c.Logger.Warn("scanning rule storage", slogutil.KeyError, err)
	}

	ctx := context.Background()
	for _, t := range engine.lookupTables {
		c.Metrics.SetTableRulesCount(ctx, t.name, t.RulesCount())
	}

	dur := time.Since(start)
	c.Metrics.ObserveBuild(ctx, dur)
	c.Logger.Debug(
		"network engine built",
		"strategy", c.Strategy,
		"rules", engine.rulesCount,
		"elapsed", dur,
	)

	return engine, nil
}

// newNetworkEngine returns an empty engine with the lookup tables chosen by c.
func newNetworkEngine(s *filterlist.RuleStorage, c *NetworkEngineConfig) (engine *NetworkEngine) {
	shortcuts := namedTable{
		Table: lookup.NewShortcutsTableWithConfig(s, c.shortcutConfig()),
		name:  TableNameShortcuts,
	}
	if c.Strategy == StrategyTrie {
		shortcuts = namedTable{
			Table: lookup.NewTrieTable(s, c.trieConfig()),
			name:  TableNameTrie,
		}
	}

	return &NetworkEngine{
		ruleStorage: s,
		lookupTables: []namedTable{
			shortcuts,
			{Table: lookup.NewDomainsTable(s), name: TableNameDomains},
			{Table: lookup.NewSeqScanTable(s), name: TableNameSeqScan},
		},
	}
}

// addRule adds rule to the first lookup table that claims it.
func (n *NetworkEngine) addRule(f *rules.NetworkRule, idx filterlist.RuleIdx) {
	for _, table := range n.lookupTables {
		if table.TryAdd(f, idx) {
			n.rulesCount++

			return
		}
	}
}

// Match searches over all filtering rules loaded to the engine.  It returns
// true if a match was found alongside the matching rule.
func (n *NetworkEngine) Match(r *rules.Request) (rule *rules.NetworkRule, ok bool) {
	networkRules := n.MatchAll(r)
	if len(networkRules) == 0 {
		return nil, false
	}

	rule = rules.NewMatchingResult(networkRules, nil).GetBasicResult()

	return rule, rule != nil
}

// MatchRequest returns the detailed decision for r built from the rules
// matching it.  Document-level rules are not looked up, see
// [Engine.MatchRequest] for that.
func (n *NetworkEngine) MatchRequest(r *rules.Request) (res *rules.MatchingResult) {
	return rules.NewMatchingResult(n.MatchAll(r), nil)
}

// MatchAll finds all rules matching the specified request regardless of the
// rule types.  It will find both allowlist and blocklist rules.
func (n *NetworkEngine) MatchAll(r *rules.Request) (result []*rules.NetworkRule) {
	for _, table := range n.lookupTables {
		result = append(result, table.MatchAll(r)...)
	}

	return result
}

// RulesCount returns the number of rules added to the engine.
func (n *NetworkEngine) RulesCount() (count int) {
	return n.rulesCount
}
