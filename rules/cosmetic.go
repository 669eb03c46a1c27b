package rules

import (
	"fmt"
	"strings"
)

// CosmeticRuleType is the enumeration of different cosmetic rule types.
type CosmeticRuleType uint8

// CosmeticRuleType enumeration.
const (
	// CosmeticElementHiding is the "##" element hiding rule.
	CosmeticElementHiding CosmeticRuleType = iota + 1

	// CosmeticCSS is the "#$#" CSS injection rule.
	CosmeticCSS

	// CosmeticJS is the "#%#" JavaScript or scriptlet rule.
	CosmeticJS
)

// cosmeticMarker describes one of the cosmetic rule separators.
type cosmeticMarker struct {
	text        string
	typ         CosmeticRuleType
	whitelist   bool
	extendedCSS bool
}

// cosmeticMarkers are sorted so that longer markers sharing a prefix with
// shorter ones come first.
var cosmeticMarkers = []cosmeticMarker{
	{text: "#@$?#", typ: CosmeticCSS, whitelist: true, extendedCSS: true},
	{text: "#$?#", typ: CosmeticCSS, extendedCSS: true},
	{text: "#@?#", typ: CosmeticElementHiding, whitelist: true, extendedCSS: true},
	{text: "#@$#", typ: CosmeticCSS, whitelist: true},
	{text: "#@%#", typ: CosmeticJS, whitelist: true},
	{text: "#?#", typ: CosmeticElementHiding, extendedCSS: true},
	{text: "#@#", typ: CosmeticElementHiding, whitelist: true},
	{text: "#$#", typ: CosmeticCSS},
	{text: "#%#", typ: CosmeticJS},
	{text: "##", typ: CosmeticElementHiding},
}

// findCosmeticMarker returns the index and the text of the leftmost cosmetic
// marker in line.  marker is empty if there is none.
func findCosmeticMarker(line string) (idx int, marker string) {
	idx = -1
	for _, m := range cosmeticMarkers {
		i := strings.Index(line, m.text)
		if i == -1 {
			continue
		}

		if idx == -1 || i < idx || (i == idx && len(m.text) > len(marker)) {
			idx, marker = i, m.text
		}
	}

	return idx, marker
}

// isCosmetic returns true if line looks like a cosmetic rule.
func isCosmetic(line string) (ok bool) {
	_, marker := findCosmeticMarker(line)

	return marker != ""
}

// CosmeticRule represents a cosmetic rule: element hiding, CSS, or JS.  See
// https://kb.adguard.com/en/general/how-to-create-your-own-ad-filters#cosmetic-rules.
type CosmeticRule struct {
	// RuleText is the original rule text.
	RuleText string

	// Content is the part of the rule after the marker: a CSS selector, a
	// style, or a script.
	Content string

	permittedDomains  []string
	restrictedDomains []string

	// FilterListID is the identifier of the filter list the rule belongs to.
	FilterListID int

	// Type is the type of the rule.
	Type CosmeticRuleType

	// Whitelist is true if the rule disables other rules with the same
	// content.
	Whitelist bool

	// ExtendedCSS is true if the content uses extended CSS syntax.
	ExtendedCSS bool
}

// type check
var _ Rule = (*CosmeticRule)(nil)

// NewCosmeticRule parses the rule text and creates a cosmetic rule.
func NewCosmeticRule(ruleText string, filterListID int) (r *CosmeticRule, err error) {
	idx, markerText := findCosmeticMarker(ruleText)
	if markerText == "" {
		return nil, fmt.Errorf("not a cosmetic rule: %q", ruleText)
	}

	var m cosmeticMarker
	for _, cm := range cosmeticMarkers {
		if cm.text == markerText {
			m = cm

			break
		}
	}

	r = &CosmeticRule{
		RuleText:     ruleText,
		FilterListID: filterListID,
		Type:         m.typ,
		Whitelist:    m.whitelist,
		ExtendedCSS:  m.extendedCSS,
		Content:      strings.TrimSpace(ruleText[idx+len(markerText):]),
	}

	if r.Content == "" {
		return nil, fmt.Errorf("empty cosmetic rule content: %q", ruleText)
	}

	if idx > 0 {
		r.permittedDomains, r.restrictedDomains, err = loadDomains(ruleText[:idx], ",")
		if err != nil {
			return nil, fmt.Errorf("cosmetic rule %q: %w", ruleText, err)
		}
	}

	if r.Whitelist && len(r.permittedDomains) == 0 {
		return nil, fmt.Errorf("generic allowlist cosmetic rule is not allowed: %q", ruleText)
	}

	return r, nil
}

// Text implements the [Rule] interface for *CosmeticRule.
func (r *CosmeticRule) Text() (s string) {
	return r.RuleText
}

// GetFilterListID implements the [Rule] interface for *CosmeticRule.
func (r *CosmeticRule) GetFilterListID() (id int) {
	return r.FilterListID
}

// String returns the original rule text.
func (r *CosmeticRule) String() (s string) {
	return r.RuleText
}

// PermittedDomains returns the domains the rule is limited to.
func (r *CosmeticRule) PermittedDomains() (domains []string) {
	return r.permittedDomains
}

// RestrictedDomains returns the domains the rule is disabled on.
func (r *CosmeticRule) RestrictedDomains() (domains []string) {
	return r.restrictedDomains
}

// IsGeneric returns true if the rule is not limited to any domain.  It may
// still be disabled on some domains.
func (r *CosmeticRule) IsGeneric() (ok bool) {
	return len(r.permittedDomains) == 0
}

// Match returns true if the rule applies to pages on hostname.
func (r *CosmeticRule) Match(hostname string) (ok bool) {
	if len(r.restrictedDomains) > 0 && isDomainOrSubdomainOfAny(hostname, r.restrictedDomains) {
		return false
	}

	return len(r.permittedDomains) == 0 || isDomainOrSubdomainOfAny(hostname, r.permittedDomains)
}
