// Package lookup implements index structures that we use to improve matching
// speed in the engines.
package lookup

import (
	"slices"
	"strings"

	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// Table is a common interface for all lookup tables.
type Table interface {
	// TryAdd attempts to add the rule to the lookup table.  It returns true if
	// the rule is eligible for this lookup table and has been added.  Only idx
	// is kept by the table.
	TryAdd(f *rules.NetworkRule, idx filterlist.RuleIdx) (ok bool)

	// MatchAll finds all matching rules from this lookup table.
	MatchAll(r *rules.Request) (result []*rules.NetworkRule)

	// RulesCount returns the number of rules added to the table.
	RulesCount() (n int)
}

// GenericPrefix describes shortcuts that are too generic to be indexed: the
// ones starting with Prefix and shorter than MaxLen.
type GenericPrefix struct {
	// Prefix is the beginning of the generic shortcut.
	Prefix string

	// MaxLen is the exclusive upper bound of the generic shortcut length.
	MaxLen int
}

// DefaultGenericPrefixes are the prefixes of the shortcuts that match almost
// any URL, like "https://" or "|ws".
var DefaultGenericPrefixes = []GenericPrefix{{
	Prefix: "ws:",
	MaxLen: len("ws://") + 1,
}, {
	Prefix: "wss:",
	MaxLen: len("wss://") + 1,
}, {
	Prefix: "|ws",
	MaxLen: len("|wss://") + 1,
}, {
	Prefix: "http",
	MaxLen: len("https://") + 1,
}, {
	Prefix: "|http",
	MaxLen: len("|https://") + 1,
}}

// isGenericShortcut checks if the shortcut potentially matches too many URLs.
// Such rules had better use another type of lookup table.
func isGenericShortcut(shortcut string, prefixes []GenericPrefix) (ok bool) {
	return slices.ContainsFunc(prefixes, func(p GenericPrefix) (isGeneric bool) {
		return len(shortcut) < p.MaxLen && strings.HasPrefix(shortcut, p.Prefix)
	})
}

// appendMatching retrieves the rules by idxs, and appends the ones matching r
// and not yet in result to result.
func appendMatching(
	result []*rules.NetworkRule,
	s *filterlist.RuleStorage,
	idxs []filterlist.RuleIdx,
	r *rules.Request,
) (res []*rules.NetworkRule) {
	for _, idx := range idxs {
		rule := s.RetrieveNetworkRule(idx)

		// Make sure that the same rule isn't returned twice.  This happens
		// when the URL has a repeating pattern.  The check is performed
		// rarely and on rather short slices.
		if rule == nil || slices.Contains(result, rule) || !rule.Match(r) {
			continue
		}

		result = append(result, rule)
	}

	return result
}
