package filterlist

import "github.com/SukkaW/tsurlfilter-sub001/rules"

// RuleStorageScanner scans multiple RuleScanner instances.  A list is scanned
// completely before the next one.
type RuleStorageScanner struct {
	// Scanners is the list of list scanners backing this combined scanner.
	Scanners []*RuleScanner

	// currentIdx is the index of the current scanner.
	currentIdx int
}

// Scan advances the scanner to the next rule.  It returns false when all the
// scanners are exhausted.
func (s *RuleStorageScanner) Scan() (ok bool) {
	for ; s.currentIdx < len(s.Scanners); s.currentIdx++ {
		if s.Scanners[s.currentIdx].Scan() {
			return true
		}
	}

	return false
}

// Rule returns the most recent rule generated by a call to Scan and its index
// in the storage.
func (s *RuleStorageScanner) Rule() (r rules.Rule, idx RuleIdx) {
	if s.currentIdx >= len(s.Scanners) {
		return nil, RuleIdx{}
	}

	r, pos := s.Scanners[s.currentIdx].Rule()
	if r == nil {
		return nil, RuleIdx{}
	}

	return r, RuleIdx{
		ListID:   r.GetFilterListID(),
		Position: pos,
	}
}

// Err returns the first read error of the underlying scanners, if any.
func (s *RuleStorageScanner) Err() (err error) {
	for _, sc := range s.Scanners {
		if err = sc.Err(); err != nil {
			return err
		}
	}

	return nil
}
