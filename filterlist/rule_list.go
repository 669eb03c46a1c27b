package filterlist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// RuleList represents a set of filtering rules.
type RuleList interface {
	// GetID returns the rule list identifier.
	GetID() (id int)

	// NewScanner creates a new scanner that reads the list contents.
	NewScanner() (sc *RuleScanner)

	// RetrieveRule returns the rule the line of which starts at the byte
	// offset pos.
	RetrieveRule(pos int) (r rules.Rule, err error)

	io.Closer
}

// StringRuleList is a [RuleList] backed by a string.
type StringRuleList struct {
	// RulesText is the filtering rules, one per line.
	RulesText string

	// ID is the rule list identifier.
	ID int

	// IgnoreCosmetic tells whether to ignore cosmetic rules.
	IgnoreCosmetic bool
}

// type check
var _ RuleList = (*StringRuleList)(nil)

// GetID implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) GetID() (id int) {
	return l.ID
}

// NewScanner implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) NewScanner() (sc *RuleScanner) {
	return NewRuleScanner(strings.NewReader(l.RulesText), l.ID, l.IgnoreCosmetic)
}

// RetrieveRule implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) RetrieveRule(pos int) (r rules.Rule, err error) {
	if pos < 0 || pos >= len(l.RulesText) {
		return nil, fmt.Errorf("%w: position %d out of range", ErrRuleRetrieval, pos)
	} else if pos > 0 && l.RulesText[pos-1] != '\n' {
		return nil, fmt.Errorf("%w: position %d is not a line start", ErrRuleRetrieval, pos)
	}

	line, _, _ := strings.Cut(l.RulesText[pos:], "\n")

	return parseLine(line, l.ID, l.IgnoreCosmetic)
}

// Close implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) Close() (err error) {
	return nil
}

// BytesRuleList is a [RuleList] backed by a byte slice.  RulesText must not be
// modified after the list is created.
type BytesRuleList struct {
	// RulesText is the filtering rules, one per line.
	RulesText []byte

	// ID is the rule list identifier.
	ID int

	// IgnoreCosmetic tells whether to ignore cosmetic rules.
	IgnoreCosmetic bool
}

// type check
var _ RuleList = (*BytesRuleList)(nil)

// GetID implements the [RuleList] interface for *BytesRuleList.
func (l *BytesRuleList) GetID() (id int) {
	return l.ID
}

// NewScanner implements the [RuleList] interface for *BytesRuleList.
func (l *BytesRuleList) NewScanner() (sc *RuleScanner) {
	return NewRuleScanner(bytes.NewReader(l.RulesText), l.ID, l.IgnoreCosmetic)
}

// RetrieveRule implements the [RuleList] interface for *BytesRuleList.
func (l *BytesRuleList) RetrieveRule(pos int) (r rules.Rule, err error) {
	if pos < 0 || pos >= len(l.RulesText) {
		return nil, fmt.Errorf("%w: position %d out of range", ErrRuleRetrieval, pos)
	} else if pos > 0 && l.RulesText[pos-1] != '\n' {
		return nil, fmt.Errorf("%w: position %d is not a line start", ErrRuleRetrieval, pos)
	}

	line, _, _ := bytes.Cut(l.RulesText[pos:], []byte{'\n'})

	return parseLine(string(line), l.ID, l.IgnoreCosmetic)
}

// Close implements the [RuleList] interface for *BytesRuleList.
func (l *BytesRuleList) Close() (err error) {
	return nil
}

// FileRuleList is a [RuleList] backed by a file.  Rules are read from the
// file each time they are retrieved, so only the scanned indexes are kept in
// memory.
type FileRuleList struct {
	file *os.File

	// size is the size of the file at the moment the list was opened.
	size int64

	id             int
	ignoreCosmetic bool
}

// type check
var _ RuleList = (*FileRuleList)(nil)

// NewFileRuleList opens the file at path and returns a rule list reading it.
// The file must not be modified while the list is in use.
func NewFileRuleList(id int, path string, ignoreCosmetic bool) (l *FileRuleList, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rule list: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.WithDeferred(fmt.Errorf("getting rule list info: %w", err), f.Close())
	}

	return &FileRuleList{
		file:           f,
		size:           fi.Size(),
		id:             id,
		ignoreCosmetic: ignoreCosmetic,
	}, nil
}

// GetID implements the [RuleList] interface for *FileRuleList.
func (l *FileRuleList) GetID() (id int) {
	return l.id
}

// NewScanner implements the [RuleList] interface for *FileRuleList.  Several
// scanners of the same list may be used simultaneously.
func (l *FileRuleList) NewScanner() (sc *RuleScanner) {
	return NewRuleScanner(io.NewSectionReader(l.file, 0, l.size), l.id, l.ignoreCosmetic)
}

// RetrieveRule implements the [RuleList] interface for *FileRuleList.  It is
// safe for concurrent use.
func (l *FileRuleList) RetrieveRule(pos int) (r rules.Rule, err error) {
	if pos < 0 || int64(pos) >= l.size {
		return nil, fmt.Errorf("%w: position %d out of range", ErrRuleRetrieval, pos)
	}

	start := int64(pos)
	if start > 0 {
		// Read the preceding byte to make sure pos is the start of a line.
		start--
	}

	br := bufio.NewReader(io.NewSectionReader(l.file, start, l.size-start))
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading rule at %d: %w", pos, err)
	}

	if start < int64(pos) {
		if line != "\n" {
			return nil, fmt.Errorf("%w: position %d is not a line start", ErrRuleRetrieval, pos)
		}

		line, err = br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading rule at %d: %w", pos, err)
		}
	}

	return parseLine(line, l.id, l.ignoreCosmetic)
}

// Close implements the [RuleList] interface for *FileRuleList.
func (l *FileRuleList) Close() (err error) {
	return l.file.Close()
}

// parseLine parses a single line retrieved by its position.  Unlike the
// scanner, it returns an error if there is no rule in the line.
func parseLine(line string, listID int, ignoreCosmetic bool) (r rules.Rule, err error) {
	r, err = rules.NewRule(line, listID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuleRetrieval, err)
	} else if r == nil {
		return nil, fmt.Errorf("%w: no rule in line %q", ErrRuleRetrieval, line)
	}

	if _, ok := r.(*rules.CosmeticRule); ok && ignoreCosmetic {
		return nil, fmt.Errorf("%w: cosmetic rules are ignored", ErrRuleRetrieval)
	}

	return r, nil
}
