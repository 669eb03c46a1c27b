package lookup

import (
	"fmt"
	"math"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/internal/fasthash"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// DefaultShortcutLength is the default length of the shortcut windows.
const DefaultShortcutLength = 5

// ShortcutConfig is the configuration structure for a [ShortcutsTable].
type ShortcutConfig struct {
	// GenericPrefixes describe the shortcuts that are not indexed.
	GenericPrefixes []GenericPrefix

	// Length is the length of the shortcut windows.  It must be positive.
	Length int
}

// DefaultShortcutConfig returns the default shortcut configuration.
func DefaultShortcutConfig() (c *ShortcutConfig) {
	return &ShortcutConfig{
		GenericPrefixes: DefaultGenericPrefixes,
		Length:          DefaultShortcutLength,
	}
}

// type check
var _ validate.Interface = (*ShortcutConfig)(nil)

// Validate implements the [validate.Interface] interface for *ShortcutConfig.
func (c *ShortcutConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.Positive("Length", c.Length),
	}

	for i, p := range c.GenericPrefixes {
		if p.Prefix == "" {
			errs = append(errs, fmt.Errorf("GenericPrefixes: at index %d: Prefix: %w", i, errors.ErrEmptyValue))
		}
	}

	return errors.Join(errs...)
}

// ShortcutsTable is a table that relies on the rule shortcuts to quickly find
// matching rules.  Here's how it works:
//
//  1. We extract from the rule the longest substring without special
//     characters, this string is called a shortcut.
//  2. We take a part of it of the configured length and put it to the
//     internal hashmap.
//  3. When we match a request, we take all substrings of that length from the
//     URL and check if there are any rules in the hashmap.
//
// Note that only the rules with a shortcut are eligible for this table.
type ShortcutsTable struct {
	// ruleStorage is the storage of the network filtering rules.
	ruleStorage *filterlist.RuleStorage

	// lookupTable contains the rule indexes by the shortcut window hash.
	lookupTable map[uint32][]filterlist.RuleIdx

	// histogram helps to choose the least used window of a shortcut.
	histogram map[uint32]int

	genericPrefixes []GenericPrefix
	length          int
	count           int
}

// type check
var _ Table = (*ShortcutsTable)(nil)

// NewShortcutsTable creates a new instance of the ShortcutsTable with the
// default configuration.
func NewShortcutsTable(rs *filterlist.RuleStorage) (s *ShortcutsTable) {
	return NewShortcutsTableWithConfig(rs, DefaultShortcutConfig())
}

// NewShortcutsTableWithConfig creates a new instance of the ShortcutsTable.  c
// must be valid.
func NewShortcutsTableWithConfig(rs *filterlist.RuleStorage, c *ShortcutConfig) (s *ShortcutsTable) {
	return &ShortcutsTable{
		ruleStorage:     rs,
		lookupTable:     map[uint32][]filterlist.RuleIdx{},
		histogram:       map[uint32]int{},
		genericPrefixes: c.GenericPrefixes,
		length:          c.Length,
	}
}

// TryAdd implements the [Table] interface for *ShortcutsTable.
func (s *ShortcutsTable) TryAdd(f *rules.NetworkRule, idx filterlist.RuleIdx) (ok bool) {
	shortcut := f.Shortcut
	if len(shortcut) < s.length || isGenericShortcut(shortcut, s.genericPrefixes) {
		return false
	}

	// Find the least used window.
	var hash uint32
	minCount := math.MaxInt
	for i := 0; i <= len(shortcut)-s.length; i++ {
		h := fasthash.Range(shortcut, i, i+s.length)
		if count := s.histogram[h]; count < minCount {
			minCount = count
			hash = h
		}
	}

	s.histogram[hash] = minCount + 1
	s.lookupTable[hash] = append(s.lookupTable[hash], idx)
	s.count++

	return true
}

// MatchAll implements the [Table] interface for *ShortcutsTable.
func (s *ShortcutsTable) MatchAll(r *rules.Request) (result []*rules.NetworkRule) {
	url := r.URLLowerCase
	for i := 0; i <= len(url)-s.length; i++ {
		idxs, ok := s.lookupTable[fasthash.Range(url, i, i+s.length)]
		if ok {
			result = appendMatching(result, s.ruleStorage, idxs, r)
		}
	}

	return result
}

// RulesCount implements the [Table] interface for *ShortcutsTable.
func (s *ShortcutsTable) RulesCount() (n int) {
	return s.count
}
