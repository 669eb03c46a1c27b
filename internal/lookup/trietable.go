package lookup

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
	"github.com/armon/go-radix"
)

// DefaultTrieMinLength is the default minimum length of the shortcuts indexed
// by a [TrieTable].
const DefaultTrieMinLength = 3

// TrieConfig is the configuration structure for a [TrieTable].
type TrieConfig struct {
	// GenericPrefixes describe the shortcuts that are not indexed.
	GenericPrefixes []GenericPrefix

	// MinLength is the minimum length of the indexed shortcuts.  It must be
	// positive.
	MinLength int
}

// DefaultTrieConfig returns the default trie configuration.
func DefaultTrieConfig() (c *TrieConfig) {
	return &TrieConfig{
		GenericPrefixes: DefaultGenericPrefixes,
		MinLength:       DefaultTrieMinLength,
	}
}

// type check
var _ validate.Interface = (*TrieConfig)(nil)

// Validate implements the [validate.Interface] interface for *TrieConfig.
func (c *TrieConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.Positive("MinLength", c.MinLength),
	}

	for i, p := range c.GenericPrefixes {
		if p.Prefix == "" {
			errs = append(errs, fmt.Errorf("GenericPrefixes: at index %d: Prefix: %w", i, errors.ErrEmptyValue))
		}
	}

	return errors.Join(errs...)
}

// TrieTable is a lookup table that keeps whole rule shortcuts in a radix tree.
// Matching walks the tree along every suffix of the URL, so every rule the
// shortcut of which is a substring of the URL is found.
type TrieTable struct {
	// ruleStorage is the storage of the network filtering rules.
	ruleStorage *filterlist.RuleStorage

	// tree maps shortcuts to []filterlist.RuleIdx.
	tree *radix.Tree

	genericPrefixes []GenericPrefix
	minLength       int
	count           int
}

// type check
var _ Table = (*TrieTable)(nil)

// NewTrieTable creates a new instance of the TrieTable.  c must be valid.
func NewTrieTable(rs *filterlist.RuleStorage, c *TrieConfig) (t *TrieTable) {
	return &TrieTable{
		ruleStorage:     rs,
		tree:            radix.New(),
		genericPrefixes: c.GenericPrefixes,
		minLength:       c.MinLength,
	}
}

// TryAdd implements the [Table] interface for *TrieTable.
func (t *TrieTable) TryAdd(f *rules.NetworkRule, idx filterlist.RuleIdx) (ok bool) {
	shortcut := f.Shortcut
	if len(shortcut) < t.minLength || isGenericShortcut(shortcut, t.genericPrefixes) {
		return false
	}

	var idxs []filterlist.RuleIdx
	if v, found := t.tree.Get(shortcut); found {
		idxs = v.([]filterlist.RuleIdx)
	}

	t.tree.Insert(shortcut, append(idxs, idx))
	t.count++

	return true
}

// MatchAll implements the [Table] interface for *TrieTable.
func (t *TrieTable) MatchAll(r *rules.Request) (result []*rules.NetworkRule) {
	url := r.URLLowerCase
	for i := range len(url) - t.minLength + 1 {
		t.tree.WalkPath(url[i:], func(_ string, v any) (stop bool) {
			result = appendMatching(result, t.ruleStorage, v.([]filterlist.RuleIdx), r)

			return false
		})
	}

	return result
}

// RulesCount implements the [Table] interface for *TrieTable.
func (t *TrieTable) RulesCount() (n int) {
	return t.count
}
