package lookup

import (
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// SeqScanTable is basically just a list of network rules that are scanned
// sequentially.  Here we put the rules that are not eligible for other tables.
type SeqScanTable struct {
	// ruleStorage is the storage of the network filtering rules.
	ruleStorage *filterlist.RuleStorage

	// idxs are the indexes of all the added rules.
	idxs []filterlist.RuleIdx
}

// type check
var _ Table = (*SeqScanTable)(nil)

// NewSeqScanTable creates a new instance of the SeqScanTable.
func NewSeqScanTable(rs *filterlist.RuleStorage) (s *SeqScanTable) {
	return &SeqScanTable{
		ruleStorage: rs,
	}
}

// TryAdd implements the [Table] interface for *SeqScanTable.  It always claims
// the rule.
func (s *SeqScanTable) TryAdd(_ *rules.NetworkRule, idx filterlist.RuleIdx) (ok bool) {
	s.idxs = append(s.idxs, idx)

	return true
}

// MatchAll implements the [Table] interface for *SeqScanTable.
func (s *SeqScanTable) MatchAll(r *rules.Request) (result []*rules.NetworkRule) {
	for _, idx := range s.idxs {
		rule := s.ruleStorage.RetrieveNetworkRule(idx)
		if rule != nil && rule.Match(r) {
			result = append(result, rule)
		}
	}

	return result
}

// RulesCount implements the [Table] interface for *SeqScanTable.
func (s *SeqScanTable) RulesCount() (n int) {
	return len(s.idxs)
}
