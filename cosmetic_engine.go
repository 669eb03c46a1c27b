package urlfilter

import (
	"github.com/AdguardTeam/golibs/container"
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/internal/ufnet"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// StylesResult contains either element hiding or CSS rules.
type StylesResult struct {
	Generic        []string `json:"generic"`
	Specific       []string `json:"specific"`
	GenericExtCSS  []string `json:"genericExtCss"`
	SpecificExtCSS []string `json:"specificExtCss"`
}

// ScriptsResult contains scripts to be executed on a page.
type ScriptsResult struct {
	Generic  []string `json:"generic"`
	Specific []string `json:"specific"`
}

// CosmeticResult represents all the cosmetic rules applicable to a page.
type CosmeticResult struct {
	ElementHiding StylesResult  `json:"elementHiding"`
	CSS           StylesResult  `json:"css"`
	JS            ScriptsResult `json:"js"`
}

// CosmeticEngine combines all the cosmetic rules and allows to quickly find
// all the rules matching the specified hostname.
type CosmeticEngine struct {
	// lookupTables contains one table per [rules.CosmeticRuleType].
	lookupTables map[rules.CosmeticRuleType]*cosmeticLookupTable

	rulesCount int
}

// NewCosmeticEngine builds a new cosmetic engine from the cosmetic rules of
// the specified storage.
func NewCosmeticEngine(s *filterlist.RuleStorage) (e *CosmeticEngine) {
	e = &CosmeticEngine{
		lookupTables: map[rules.CosmeticRuleType]*cosmeticLookupTable{
			rules.CosmeticElementHiding: newCosmeticLookupTable(s),
			rules.CosmeticCSS:           newCosmeticLookupTable(s),
			rules.CosmeticJS:            newCosmeticLookupTable(s),
		},
	}

	scanner := s.NewRuleStorageScanner()
	for scanner.Scan() {
		f, idx := scanner.Rule()
		rule, ok := f.(*rules.CosmeticRule)
		if !ok {
			continue
		}

		e.lookupTables[rule.Type].addRule(rule, idx)
		e.rulesCount++
	}

	return e
}

// RulesCount returns the number of cosmetic rules in the engine.
func (e *CosmeticEngine) RulesCount() (n int) {
	return e.rulesCount
}

// Match builds the cosmetic result for the specified hostname.  includeCSS
// enables the element hiding and CSS rules, includeJS enables the scripts, and
// includeGeneric enables the rules not limited to any domain.
func (e *CosmeticEngine) Match(
	hostname string,
	includeCSS bool,
	includeJS bool,
	includeGeneric bool,
) (res *CosmeticResult) {
	res = &CosmeticResult{}

	if includeCSS {
		e.lookupTables[rules.CosmeticElementHiding].appendStyles(
			&res.ElementHiding,
			hostname,
			includeGeneric,
		)
		e.lookupTables[rules.CosmeticCSS].appendStyles(&res.CSS, hostname, includeGeneric)
	}

	if includeJS {
		e.lookupTables[rules.CosmeticJS].appendScripts(&res.JS, hostname, includeGeneric)
	}

	return res
}

// cosmeticLookupTable is a lookup table for the cosmetic rules of one type.
// Like the network lookup tables, it keeps the rule indexes only.
type cosmeticLookupTable struct {
	ruleStorage *filterlist.RuleStorage

	// byHostname contains the domain-specific rules by their permitted
	// domains.
	byHostname map[string][]filterlist.RuleIdx

	// allowlist contains the allowlist rules by their content.
	allowlist map[string][]filterlist.RuleIdx

	// wildcard contains the domain-specific rules with a wildcard permitted
	// domain, which cannot be looked up by the hostname.
	wildcard []filterlist.RuleIdx

	// generic contains the rules not limited to any domain.
	generic []filterlist.RuleIdx
}

// newCosmeticLookupTable returns a new empty *cosmeticLookupTable.
func newCosmeticLookupTable(s *filterlist.RuleStorage) (t *cosmeticLookupTable) {
	return &cosmeticLookupTable{
		ruleStorage: s,
		byHostname:  map[string][]filterlist.RuleIdx{},
		allowlist:   map[string][]filterlist.RuleIdx{},
	}
}

// addRule adds the rule to the table.
func (t *cosmeticLookupTable) addRule(f *rules.CosmeticRule, idx filterlist.RuleIdx) {
	switch {
	case f.Whitelist:
		t.allowlist[f.Content] = append(t.allowlist[f.Content], idx)
	case f.IsGeneric():
		t.generic = append(t.generic, idx)
	default:
		t.addSpecific(f, idx)
	}
}

// addSpecific adds the domain-specific rule to the table.
func (t *cosmeticLookupTable) addSpecific(f *rules.CosmeticRule, idx filterlist.RuleIdx) {
	domains := f.PermittedDomains()
	for _, d := range domains {
		if ufnet.IsWildcardDomain(d) {
			t.wildcard = append(t.wildcard, idx)

			return
		}
	}

	for _, d := range domains {
		t.byHostname[d] = append(t.byHostname[d], idx)
	}
}

// matchGeneric returns the generic rules applicable to hostname.
func (t *cosmeticLookupTable) matchGeneric(hostname string) (result []*rules.CosmeticRule) {
	return t.appendMatching(nil, nil, t.generic, hostname)
}

// matchSpecific returns the domain-specific rules applicable to hostname.
func (t *cosmeticLookupTable) matchSpecific(hostname string) (result []*rules.CosmeticRule) {
	// A rule is filed under every permitted domain, so it can be found
	// through several subdomains.
	seen := container.NewMapSet[filterlist.RuleIdx]()
	for _, sub := range ufnet.Subdomains(hostname) {
		result = t.appendMatching(result, seen, t.byHostname[sub], hostname)
	}

	return t.appendMatching(result, seen, t.wildcard, hostname)
}

// appendMatching retrieves the rules by idxs and appends the ones applicable
// to hostname to result.  seen, if not nil, is used to skip the duplicates.
func (t *cosmeticLookupTable) appendMatching(
	result []*rules.CosmeticRule,
	seen *container.MapSet[filterlist.RuleIdx],
	idxs []filterlist.RuleIdx,
	hostname string,
) (res []*rules.CosmeticRule) {
	for _, idx := range idxs {
		if seen != nil {
			if seen.Has(idx) {
				continue
			}

			seen.Add(idx)
		}

		rule := t.ruleStorage.RetrieveCosmeticRule(idx)
		if rule == nil || !rule.Match(hostname) || t.isAllowlisted(rule, hostname) {
			continue
		}

		result = append(result, rule)
	}

	return result
}

// isAllowlisted returns true if an allowlist rule with the same content
// disables rule on hostname.
func (t *cosmeticLookupTable) isAllowlisted(rule *rules.CosmeticRule, hostname string) (ok bool) {
	for _, idx := range t.allowlist[rule.Content] {
		al := t.ruleStorage.RetrieveCosmeticRule(idx)
		if al != nil && al.Match(hostname) {
			return true
		}
	}

	return false
}

// appendStyles appends the element hiding or CSS rules applicable to hostname
// to res.
func (t *cosmeticLookupTable) appendStyles(res *StylesResult, hostname string, includeGeneric bool) {
	if includeGeneric {
		for _, r := range t.matchGeneric(hostname) {
			if r.ExtendedCSS {
				res.GenericExtCSS = append(res.GenericExtCSS, r.Content)
			} else {
				res.Generic = append(res.Generic, r.Content)
			}
		}
	}

	for _, r := range t.matchSpecific(hostname) {
		if r.ExtendedCSS {
			res.SpecificExtCSS = append(res.SpecificExtCSS, r.Content)
		} else {
			res.Specific = append(res.Specific, r.Content)
		}
	}
}

// appendScripts appends the scripts applicable to hostname to res.
func (t *cosmeticLookupTable) appendScripts(res *ScriptsResult, hostname string, includeGeneric bool) {
	if includeGeneric {
		for _, r := range t.matchGeneric(hostname) {
			res.Generic = append(res.Generic, r.Content)
		}
	}

	for _, r := range t.matchSpecific(hostname) {
		res.Specific = append(res.Specific, r.Content)
	}
}
