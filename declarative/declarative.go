// Package declarative converts filtering rules into declarative rule-sets in
// the format of the declarativeNetRequest API, which are matched by the host
// platform instead of the filtering engine.
//
// See https://developer.chrome.com/docs/extensions/reference/api/declarativeNetRequest.
package declarative

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/c2h5oh/datasize"
)

// Limitation reasons.
const (
	// ErrBudgetExhausted is the reason of the rules skipped because the
	// maximum number of declarative rules has been reached.
	ErrBudgetExhausted errors.Error = "maximum number of declarative rules reached"

	// ErrRegexpBudgetExhausted is the reason of the rules skipped because the
	// maximum number of regexp declarative rules has been reached.
	ErrRegexpBudgetExhausted errors.Error = "maximum number of regexp declarative rules reached"

	// ErrCosmeticRule is the reason of the skipped cosmetic rules.
	ErrCosmeticRule errors.Error = "cosmetic rules cannot be converted"

	// ErrUnsupportedModifier is the reason of the rules with modifiers that
	// have no declarative equivalent.
	ErrUnsupportedModifier errors.Error = "unsupported modifier"

	// ErrExcluded is the reason of the rules disabled by a $badfilter rule.
	ErrExcluded errors.Error = "disabled by a $badfilter rule"

	// ErrBadfilterApplied is the reason of the $badfilter rules themselves,
	// which are applied during the conversion.
	ErrBadfilterApplied errors.Error = "$badfilter rule applied during conversion"

	// ErrFilterTooLarge is returned when the filter content exceeds the
	// configured maximum size.
	ErrFilterTooLarge errors.Error = "filter is too large"
)

// LineSource provides the lines of a filter.
type LineSource interface {
	// Lines returns all lines of the filter, in order.
	Lines(ctx context.Context) (lines []string, err error)
}

// Filter is a single source filter of a rule-set.
type Filter struct {
	// Content provides the text of the filter.  It must not be nil.
	Content LineSource

	// ID is the identifier of the filter.  It must be unique within a
	// conversion and be in the [0, filterlist.MaxListID) range.
	ID int
}

// StringSource is a [LineSource] with the filter text in memory.
type StringSource string

// type check
var _ LineSource = StringSource("")

// Lines implements the [LineSource] interface for StringSource.
func (s StringSource) Lines(_ context.Context) (lines []string, err error) {
	return splitLines(string(s)), nil
}

// FileSource is a [LineSource] reading the filter from a file.
type FileSource struct {
	// Path is the path to the filter file.
	Path string

	// MaxSize is the maximum accepted size of the file.  Zero means no limit.
	MaxSize datasize.ByteSize
}

// type check
var _ LineSource = (*FileSource)(nil)

// Lines implements the [LineSource] interface for *FileSource.
func (s *FileSource) Lines(_ context.Context) (lines []string, err error) {
	if s.MaxSize > 0 {
		var fi os.FileInfo
		fi, err = os.Stat(s.Path)
		if err != nil {
			return nil, fmt.Errorf("reading filter: %w", err)
		}

		if size := datasize.ByteSize(fi.Size()); size > s.MaxSize {
			return nil, fmt.Errorf("%w: %s is larger than %s", ErrFilterTooLarge, size, s.MaxSize)
		}
	}

	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading filter: %w", err)
	}

	return splitLines(string(b)), nil
}

// splitLines splits text into lines removing the trailing carriage returns.
func splitLines(text string) (lines []string) {
	if text == "" {
		return nil
	}

	lines = strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	return lines
}
