package filterlist

import (
	"bufio"
	"io"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// RuleScanner implements an interface for reading filtering rules.
type RuleScanner struct {
	// reader is the underlying reader.
	reader *bufio.Reader

	// currentRule is the last successfully parsed rule.
	currentRule rules.Rule

	// err is the first non-EOF read error.
	err error

	// listID is the identifier of the list the scanner reads.
	listID int

	// currentPos is the byte offset of the current rule line.
	currentPos int

	// nextPos is the byte offset of the next line.
	nextPos int

	// ignoreCosmetic tells whether cosmetic rules should be skipped.
	ignoreCosmetic bool
}

// NewRuleScanner returns a new RuleScanner to read from r.  r is a source of
// filtering rules.  listID is the ID of the filtering rules list.
// ignoreCosmetic tells the scanner to skip cosmetic rules.
func NewRuleScanner(r io.Reader, listID int, ignoreCosmetic bool) (s *RuleScanner) {
	return &RuleScanner{
		reader:         bufio.NewReader(r),
		listID:         listID,
		ignoreCosmetic: ignoreCosmetic,
	}
}

// Scan advances the RuleScanner to the next rule, which will then be available
// through the Rule method.  It returns false when the scan stops, either by
// reaching the end of the input or an error.  Empty lines, comments, and lines
// that cannot be parsed are skipped.
func (s *RuleScanner) Scan() (ok bool) {
	for s.err == nil {
		line, err := s.reader.ReadString('\n')
		pos := s.nextPos
		s.nextPos += len(line)

		if r := s.parse(line); r != nil {
			s.currentRule = r
			s.currentPos = pos

			return true
		}

		if err != nil {
			s.err = err
		}
	}

	s.currentRule = nil

	return false
}

// parse returns the rule from line or nil if there is none.
func (s *RuleScanner) parse(line string) (r rules.Rule) {
	if line == "" {
		return nil
	}

	r, err := rules.NewRule(line, s.listID)
	if err != nil {
		return nil
	}

	if _, ok := r.(*rules.CosmeticRule); ok && s.ignoreCosmetic {
		return nil
	}

	return r
}

// Rule returns the most recent rule generated by a call to Scan and the byte
// offset of its line in the list.
func (s *RuleScanner) Rule() (r rules.Rule, pos int) {
	return s.currentRule, s.currentPos
}

// Err returns the first non-EOF error encountered by the scanner.
func (s *RuleScanner) Err() (err error) {
	if errors.Is(s.err, io.EOF) {
		return nil
	}

	return s.err
}
