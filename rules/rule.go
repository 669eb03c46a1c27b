// Package rules contains the filtering rule model: network and cosmetic rules,
// requests, and the resolution of the rules matching a request.
package rules

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/SukkaW/tsurlfilter-sub001/internal/ufnet"
)

const (
	// ErrUnsupportedRule signals that this might be a valid rule type, but it
	// is not supported by this library.
	ErrUnsupportedRule errors.Error = "this type of rules is unsupported"

	// ErrTooWideRule is returned if the rule matches all urls but has no
	// domain restrictions and no modifier that limits what it does.
	ErrTooWideRule errors.Error = "the rule is too wide, add domain restrictions " +
		"or make it more specific"
)

// Rule is a base interface for all filtering rules.
type Rule interface {
	// Text returns the original rule text.
	Text() (s string)

	// GetFilterListID returns ID of the filter list this rule belongs to.
	GetFilterListID() (id int)
}

// NewRule creates a new filtering rule from the specified line.  It returns
// nil if the line is empty or if it is a comment.
func NewRule(line string, filterListID int) (r Rule, err error) {
	line = strings.TrimSpace(line)

	if line == "" || IsComment(line) {
		return nil, nil
	}

	if isCosmetic(line) {
		return NewCosmeticRule(line, filterListID)
	}

	return NewNetworkRule(line, filterListID)
}

// IsComment returns true if the trimmed line is a comment or a filter-list
// header like "[Adblock Plus 2.0]".
func IsComment(line string) (ok bool) {
	if line == "" {
		return false
	}

	switch line[0] {
	case '!', '[':
		return true
	case '#':
		if len(line) == 1 {
			return true
		}

		_, marker := findCosmeticMarker(line)

		return marker == "" || !strings.HasPrefix(line, marker)
	default:
		return false
	}
}

// loadDomains loads the $domain modifier or cosmetic rules domains.  sep is
// the separator character: '|' for network rules and ',' for cosmetic ones.
func loadDomains(domains string, sep string) (permitted, restricted []string, err error) {
	if domains == "" {
		return nil, nil, errors.Error("no domains specified")
	}

	for _, d := range strings.Split(domains, sep) {
		d = strings.ToLower(strings.TrimSpace(d))

		isRestricted := strings.HasPrefix(d, "~")
		if isRestricted {
			d = d[1:]
		}

		if !ufnet.IsDomainName(d) && !isValidWildcardDomain(d) {
			return nil, nil, fmt.Errorf("invalid domain specified: %q", domains)
		}

		if isRestricted {
			restricted = append(restricted, d)
		} else {
			permitted = append(permitted, d)
		}
	}

	return permitted, restricted, nil
}

// isValidWildcardDomain returns true if d is a domain pattern like
// "example.*".
func isValidWildcardDomain(d string) (ok bool) {
	return ufnet.IsWildcardDomain(d) && ufnet.IsDomainName(d[:len(d)-len(".*")])
}
