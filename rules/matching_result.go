package rules

// MatchingResult contains all the rules matching a web request, and provides
// methods that define how a web request should be processed.
type MatchingResult struct {
	// BasicRule is the rule deciding whether the request is blocked.  It could
	// lead to one of the following:
	//   - block the request;
	//   - unblock the request, a regular allowlist rule or a document-level
	//     allowlist rule;
	//   - modify the way cosmetic rules work for this request.
	BasicRule *NetworkRule

	// DocumentRule is a rule matching the request's referrer and having one
	// of the following modifiers:
	//   - $document, which basically disables everything;
	//   - $urlblock, which disables network-level rules, not cosmetic;
	//   - $genericblock, which disables generic network-level rules.
	//
	// Other document-level modifiers like $jsinject or $content are ignored
	// here as they don't do anything.
	DocumentRule *NetworkRule

	// CspRule is the rule modifying the response's content-security-policy.
	// See the $csp modifier.
	CspRule *NetworkRule

	// CookieRule is the rule modifying the request's and response's cookies.
	// See the $cookie modifier.
	CookieRule *NetworkRule

	// ReplaceRule is the rule modifying the response's content.  See the
	// $replace modifier.
	ReplaceRule *NetworkRule

	// RedirectRule is the rule redirecting the request to a resource.  See
	// the $redirect modifier.
	RedirectRule *NetworkRule

	// RemoveParamRule is the rule removing the query parameters.  See the
	// $removeparam modifier.
	RemoveParamRule *NetworkRule

	// RemoveHeaderRule is the rule removing a header.  See the $removeheader
	// modifier.
	RemoveHeaderRule *NetworkRule

	// StealthRule is an allowlist rule that negates stealth mode features.
	// It can come from both the request rules and the source rules.
	StealthRule *NetworkRule
}

// auxiliaryCategories are the options of the categories that get a single
// winner each, independently of the basic decision.
var auxiliaryCategories = []NetworkRuleOption{
	OptionCsp,
	OptionCookie,
	OptionReplace,
	OptionRedirect,
	OptionRemoveParam,
	OptionRemoveHeader,
}

// NewMatchingResult creates an instance of the MatchingResult struct and fills
// it with the rules.  rules is the set of rules matching the request URL,
// sourceRules is the set of rules matching the referrer.
//
// The resolution works as follows:
//  1. $badfilter rules remove their exact targets from both sets.
//  2. Document-level allowlist and stealth rules are taken from sourceRules.
//  3. Each auxiliary category gets the single highest-priority rule.
//  4. The remaining rules compete for BasicRule by [NetworkRule.Priority];
//     allowlist rules outrank blocking rules of equal or lower specificity.
func NewMatchingResult(rules, sourceRules []*NetworkRule) (result *MatchingResult) {
	rules = removeBadfilterRules(rules)
	sourceRules = removeBadfilterRules(sourceRules)

	result = &MatchingResult{}

	for _, rule := range sourceRules {
		if rule.IsDocumentWhitelistRule() {
			result.DocumentRule = higherPriority(result.DocumentRule, rule)
		}

		if rule.IsOptionEnabled(OptionStealth) {
			result.StealthRule = higherPriority(result.StealthRule, rule)
		}
	}

	genericAllowed, basicAllowed := true, true
	if doc := result.DocumentRule; doc != nil {
		if doc.IsOptionEnabled(OptionUrlblock) {
			basicAllowed = false
		} else if doc.IsOptionEnabled(OptionGenericblock) {
			genericAllowed = false
		}
	}

	for _, rule := range rules {
		if result.addAuxiliary(rule) {
			continue
		}

		if rule.IsOptionEnabled(OptionStealth) {
			result.StealthRule = higherPriority(result.StealthRule, rule)

			continue
		}

		if !rule.Whitelist && (!basicAllowed || (!genericAllowed && rule.IsGeneric())) {
			continue
		}

		result.BasicRule = higherPriority(result.BasicRule, rule)
	}

	result.dropOverriddenRedirect()

	return result
}

// addAuxiliary puts rule into its auxiliary category, if any.  It returns
// false if the rule should also take part in the basic decision.
func (m *MatchingResult) addAuxiliary(rule *NetworkRule) (isAuxOnly bool) {
	for _, opt := range auxiliaryCategories {
		if !rule.IsOptionEnabled(opt) {
			continue
		}

		slot := m.auxiliarySlot(opt)
		*slot = higherPriority(*slot, rule)

		// Blocking $redirect rules block the request as well.
		return opt != OptionRedirect || rule.Whitelist
	}

	return false
}

// auxiliarySlot returns a pointer to the field of the category of opt.
func (m *MatchingResult) auxiliarySlot(opt NetworkRuleOption) (slot **NetworkRule) {
	switch opt {
	case OptionCsp:
		return &m.CspRule
	case OptionCookie:
		return &m.CookieRule
	case OptionReplace:
		return &m.ReplaceRule
	case OptionRedirect:
		return &m.RedirectRule
	case OptionRemoveParam:
		return &m.RemoveParamRule
	default:
		return &m.RemoveHeaderRule
	}
}

// dropOverriddenRedirect removes the blocking redirect rule if the final
// basic decision does not block the request.
func (m *MatchingResult) dropOverriddenRedirect() {
	if m.RedirectRule == nil || m.RedirectRule.Whitelist {
		return
	}

	if basic := m.GetBasicResult(); basic == nil || basic.Whitelist {
		m.RedirectRule = nil
	}
}

// GetBasicResult returns a rule that should be applied to the web request.
// Possible outcomes are:
//   - nil, the request should be processed normally;
//   - an allowlist rule, the request should not be blocked;
//   - a blocking rule, the request should be blocked.
func (m *MatchingResult) GetBasicResult() (rule *NetworkRule) {
	if m.BasicRule == nil {
		return m.DocumentRule
	}

	return m.BasicRule
}

// CosmeticOption is the enumeration of various content script options.
// Depending on the set of enabled flags the content script will contain
// different set of settings.
type CosmeticOption uint32

// CosmeticOption enumeration
const (
	// CosmeticOptionGenericCSS - if generic elemhide and CSS rules are
	// enabled.  Can be disabled by a $generichide rule.
	CosmeticOptionGenericCSS CosmeticOption = 1 << iota
	// CosmeticOptionCSS - if elemhide and CSS rules are enabled.  Can be
	// disabled by an $elemhide rule.
	CosmeticOptionCSS
	// CosmeticOptionJS - if JS rules and scriptlets are enabled.  Can be
	// disabled by a $jsinject rule.
	CosmeticOptionJS

	CosmeticOptionAll  = CosmeticOptionGenericCSS | CosmeticOptionCSS | CosmeticOptionJS
	CosmeticOptionNone = CosmeticOption(0)
)

// GetCosmeticOption returns a bit-flag with the list of cosmetic options.
func (m *MatchingResult) GetCosmeticOption() (opt CosmeticOption) {
	opt = CosmeticOptionAll

	for _, rule := range []*NetworkRule{m.BasicRule, m.DocumentRule} {
		if rule == nil || !rule.Whitelist {
			continue
		}

		if rule.IsOptionEnabled(OptionElemhide) {
			opt &^= CosmeticOptionCSS | CosmeticOptionGenericCSS
		}

		if rule.IsOptionEnabled(OptionGenerichide) {
			opt &^= CosmeticOptionGenericCSS
		}

		if rule.IsOptionEnabled(OptionJsinject) {
			opt &^= CosmeticOptionJS
		}
	}

	return opt
}

// higherPriority returns the rule with the higher priority.  cur wins ties,
// so the order of equal-priority rules is preserved.  cur may be nil.
func higherPriority(cur, rule *NetworkRule) (winner *NetworkRule) {
	if cur == nil || rule.IsHigherPriority(cur) {
		return rule
	}

	return cur
}

// removeBadfilterRules removes the $badfilter rules and the rules they
// disable from rules.
func removeBadfilterRules(rules []*NetworkRule) (filtered []*NetworkRule) {
	var badfilters []*NetworkRule
	for _, r := range rules {
		if r.IsOptionEnabled(OptionBadfilter) {
			badfilters = append(badfilters, r)
		}
	}

	if len(badfilters) == 0 {
		return rules
	}

	filtered = make([]*NetworkRule, 0, len(rules))
	for _, r := range rules {
		if r.IsOptionEnabled(OptionBadfilter) || isNegatedByAny(r, badfilters) {
			continue
		}

		filtered = append(filtered, r)
	}

	return filtered
}

// isNegatedByAny returns true if any of badfilters disables r.
func isNegatedByAny(r *NetworkRule, badfilters []*NetworkRule) (ok bool) {
	for _, bf := range badfilters {
		if bf.NegatesBadfilter(r) {
			return true
		}
	}

	return false
}
