package rules

import (
	"fmt"
	"math/bits"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/SukkaW/tsurlfilter-sub001/internal/ufnet"
)

const (
	maskWhiteList    = "@@"
	replaceOption    = "replace"
	optionsDelimiter = '$'
	escapeCharacter  = '\\'
)

var (
	reRegexpBrackets1         = regexp.MustCompile(`([^\\])\(.*[^\\]\)`)
	reRegexpBrackets2         = regexp.MustCompile(`([^\\])\{.*[^\\]\}`)
	reRegexpBrackets3         = regexp.MustCompile(`([^\\])\[.*[^\\]\]`)
	reRegexpEscapedCharacters = regexp.MustCompile(`([^\\])\\[a-zA-Z]`)
	reRegexpSpecialCharacters = regexp.MustCompile(`[\\^$*+?.()|[\]{}]`)
)

// NetworkRuleOption is the enumeration of various rule options.  In order to
// save memory, we store some options as a flag.
type NetworkRuleOption uint64

// NetworkRuleOption enumeration.
const (
	OptionThirdParty NetworkRuleOption = 1 << iota // $third-party modifier
	OptionMatchCase                                // $match-case modifier
	OptionImportant                                // $important modifier
	OptionBadfilter                                // $badfilter modifier

	// Allowlist rules modifiers.  Each of them can disable part of the
	// functionality.

	OptionElemhide     // $elemhide modifier
	OptionGenerichide  // $generichide modifier
	OptionGenericblock // $genericblock modifier
	OptionJsinject     // $jsinject modifier
	OptionUrlblock     // $urlblock modifier
	OptionContent      // $content modifier
	OptionExtension    // $extension modifier
	OptionStealth      // $stealth modifier

	OptionPopup // $popup modifier

	// Modifiers changing the request or the response instead of blocking.

	OptionCsp          // $csp modifier
	OptionReplace      // $replace modifier
	OptionCookie       // $cookie modifier
	OptionRedirect     // $redirect modifier
	OptionRemoveParam  // $removeparam modifier
	OptionRemoveHeader // $removeheader modifier

	// OptionBlacklistOnly are the options allowed in blocking rules only.
	OptionBlacklistOnly = OptionPopup

	// OptionWhitelistOnly are the options allowed in allowlist rules only.
	OptionWhitelistOnly = OptionElemhide | OptionGenericblock | OptionGenerichide |
		OptionJsinject | OptionUrlblock | OptionContent | OptionExtension |
		OptionStealth

	// OptionDocumentWhitelist are the options enabled by $document.
	OptionDocumentWhitelist = OptionElemhide | OptionJsinject | OptionUrlblock |
		OptionContent | OptionExtension

	// OptionAuxiliary are the options of the rules that modify requests or
	// responses instead of blocking them.
	OptionAuxiliary = OptionCsp | OptionReplace | OptionCookie | OptionRemoveParam |
		OptionRemoveHeader
)

// Count returns the count of enabled options.
func (o NetworkRuleOption) Count() (n int) {
	return bits.OnesCount64(uint64(o))
}

// NetworkRule is a basic filtering rule.  See
// https://kb.adguard.com/en/general/how-to-create-your-own-ad-filters#basic-rules.
//
// A NetworkRule is immutable after construction except for the lazily
// compiled regular expression.
type NetworkRule struct {
	// mu protects regex and invalid.
	mu *sync.Mutex

	// regex is the regular expression compiled from the pattern.
	regex *regexp.Regexp

	// RuleText is the original rule text.
	RuleText string

	// Shortcut is the longest substring of the pattern with no special
	// characters, lower-cased.  Any URL the rule matches contains it.
	Shortcut string

	// pattern is the basic rule pattern ready to be compiled to regex.
	pattern string

	// values holds the values of the modifiers that have one.
	values modifierValues

	permittedDomains  []string
	restrictedDomains []string

	// FilterListID is the identifier of the filter list the rule belongs to.
	FilterListID int

	enabledOptions  NetworkRuleOption
	disabledOptions NetworkRuleOption

	// permittedRequestTypes is 0 when all types are permitted.
	permittedRequestTypes RequestType

	// restrictedRequestTypes is 0 when no types are restricted.
	restrictedRequestTypes RequestType

	// Whitelist is true if this is an exception rule.
	Whitelist bool

	// invalid is set when the pattern cannot be compiled.  Match always
	// returns false for such rules.
	invalid bool
}

// modifierValues are the values of the modifiers that have them.
type modifierValues struct {
	csp          string
	replace      string
	cookie       string
	redirect     string
	removeParam  string
	removeHeader string
}

// type check
var _ Rule = (*NetworkRule)(nil)

// NewNetworkRule parses the rule text and returns a filter rule.
func NewNetworkRule(ruleText string, filterListID int) (r *NetworkRule, err error) {
	pattern, options, whitelist, err := parseRuleText(ruleText)
	if err != nil {
		return nil, err
	}

	r = &NetworkRule{
		mu:           &sync.Mutex{},
		RuleText:     ruleText,
		Whitelist:    whitelist,
		FilterListID: filterListID,
		pattern:      pattern,
	}

	err = r.loadOptions(options)
	if err != nil {
		return nil, err
	}

	// example.org/* -> example.org^
	if strings.HasSuffix(r.pattern, "/*") {
		r.pattern = r.pattern[:len(r.pattern)-len("/*")] + MaskSeparator
	}

	if r.isTooWide() {
		return nil, ErrTooWideRule
	}

	r.loadShortcut()

	return r, nil
}

// isTooWide returns true if the pattern matches almost everything and nothing
// else limits the rule.
func (f *NetworkRule) isTooWide() (ok bool) {
	switch f.pattern {
	case "", MaskStartURL, MaskPipe, MaskAnyCharacter:
	default:
		if len(f.pattern) >= 3 {
			return false
		}
	}

	return len(f.permittedDomains) == 0 &&
		f.permittedRequestTypes == 0 &&
		f.enabledOptions&(OptionAuxiliary|OptionRedirect|OptionStealth) == 0
}

// Text implements the [Rule] interface for *NetworkRule.
func (f *NetworkRule) Text() (s string) {
	return f.RuleText
}

// GetFilterListID implements the [Rule] interface for *NetworkRule.
func (f *NetworkRule) GetFilterListID() (id int) {
	return f.FilterListID
}

// String returns the original rule text.
func (f *NetworkRule) String() (s string) {
	return f.RuleText
}

// Pattern returns the basic rule pattern.
func (f *NetworkRule) Pattern() (p string) {
	return f.pattern
}

// Match checks if this filtering rule matches the specified request.
func (f *NetworkRule) Match(r *Request) (ok bool) {
	switch {
	case
		!f.matchShortcut(r),
		f.IsOptionEnabled(OptionThirdParty) && !r.ThirdParty,
		f.IsOptionDisabled(OptionThirdParty) && r.ThirdParty,
		!f.matchRequestType(r.RequestType),
		!f.matchSourceDomain(r),
		!f.matchPattern(r):
		return false
	}

	return true
}

// IsOptionEnabled returns true if the specified option is enabled.
func (f *NetworkRule) IsOptionEnabled(option NetworkRuleOption) (ok bool) {
	return (f.enabledOptions & option) == option
}

// IsOptionDisabled returns true if the specified option is disabled.
func (f *NetworkRule) IsOptionDisabled(option NetworkRuleOption) (ok bool) {
	return (f.disabledOptions & option) == option
}

// EnabledOptions returns all enabled options.
func (f *NetworkRule) EnabledOptions() (o NetworkRuleOption) {
	return f.enabledOptions
}

// DisabledOptions returns all disabled options.
func (f *NetworkRule) DisabledOptions() (o NetworkRuleOption) {
	return f.disabledOptions
}

// PermittedDomains returns the domains from the $domain modifier the rule is
// limited to.
func (f *NetworkRule) PermittedDomains() (domains []string) {
	return f.permittedDomains
}

// RestrictedDomains returns the domains from the $domain modifier the rule is
// disabled on.
func (f *NetworkRule) RestrictedDomains() (domains []string) {
	return f.restrictedDomains
}

// PermittedRequestTypes returns the permitted request types.  0 means all.
func (f *NetworkRule) PermittedRequestTypes() (t RequestType) {
	return f.permittedRequestTypes
}

// RestrictedRequestTypes returns the restricted request types.  0 means none.
func (f *NetworkRule) RestrictedRequestTypes() (t RequestType) {
	return f.restrictedRequestTypes
}

// CSP returns the value of the $csp modifier.
func (f *NetworkRule) CSP() (v string) { return f.values.csp }

// Replace returns the value of the $replace modifier.
func (f *NetworkRule) Replace() (v string) { return f.values.replace }

// Cookie returns the value of the $cookie modifier.
func (f *NetworkRule) Cookie() (v string) { return f.values.cookie }

// Redirect returns the resource name of the $redirect modifier.
func (f *NetworkRule) Redirect() (v string) { return f.values.redirect }

// RemoveParam returns the value of the $removeparam modifier.  An empty value
// removes all query parameters.
func (f *NetworkRule) RemoveParam() (v string) { return f.values.removeParam }

// RemoveHeader returns the header name of the $removeheader modifier.
func (f *NetworkRule) RemoveHeader() (v string) { return f.values.removeHeader }

// IsRegexRule returns true if rule's pattern is a regular expression.
func (f *NetworkRule) IsRegexRule() (ok bool) {
	return isRegexPattern(f.pattern)
}

// IsGeneric returns true if the rule is considered "generic".  "generic" means
// that the rule is not restricted to a limited set of domains.  Please note
// that it might be forbidden on some domains, though.
func (f *NetworkRule) IsGeneric() (ok bool) {
	return len(f.permittedDomains) == 0
}

// IsDocumentWhitelistRule returns true if the rule is a document-level
// allowlist rule, one that disables or modifies blocking of the page
// subrequests.  For instance, `@@||example.org^$urlblock` unblocks all
// sub-requests.
func (f *NetworkRule) IsDocumentWhitelistRule() (ok bool) {
	return f.Whitelist && (f.IsOptionEnabled(OptionUrlblock) ||
		f.IsOptionEnabled(OptionGenericblock))
}

// Priority tiers of the score returned by [NetworkRule.Priority].  A higher
// tier always dominates any combination of lower tiers.
const (
	priorityWhitelistImportant uint64 = 1 << (20 - iota)
	priorityImportant
	priorityWhitelist
	priorityRedirect
	prioritySpecific

	// priorityCountMask bounds the modifier count part of the score.
	priorityCountMask uint64 = prioritySpecific - 1
)

// Priority returns the specificity score of the rule.  Scores form a total
// order: allowlist+$important > $important > allowlist > $redirect >
// domain-restricted > the number of modifiers.
func (f *NetworkRule) Priority() (score uint64) {
	important := f.IsOptionEnabled(OptionImportant)
	if f.Whitelist && important {
		score |= priorityWhitelistImportant
	}

	if important {
		score |= priorityImportant
	}

	if f.Whitelist {
		score |= priorityWhitelist
	}

	if f.IsOptionEnabled(OptionRedirect) {
		score |= priorityRedirect
	}

	if !f.IsGeneric() {
		score |= prioritySpecific
	}

	return score | min(uint64(f.modifiersCount()), priorityCountMask)
}

// modifiersCount returns the number of modifiers that make the rule more
// specific.
func (f *NetworkRule) modifiersCount() (n int) {
	n = f.enabledOptions.Count() + f.disabledOptions.Count() +
		f.permittedRequestTypes.Count() + f.restrictedRequestTypes.Count()
	if len(f.permittedDomains) != 0 || len(f.restrictedDomains) != 0 {
		n++
	}

	return n
}

// IsHigherPriority checks if the rule has higher priority than r.
func (f *NetworkRule) IsHigherPriority(r *NetworkRule) (ok bool) {
	return f.Priority() > r.Priority()
}

// NegatesBadfilter returns true if f is a $badfilter rule and r is the exact
// rule it disables.
func (f *NetworkRule) NegatesBadfilter(r *NetworkRule) (ok bool) {
	switch {
	case
		!f.IsOptionEnabled(OptionBadfilter),
		r.IsOptionEnabled(OptionBadfilter),
		f.Whitelist != r.Whitelist,
		f.pattern != r.pattern,
		f.permittedRequestTypes != r.permittedRequestTypes,
		f.restrictedRequestTypes != r.restrictedRequestTypes,
		(f.enabledOptions ^ OptionBadfilter) != r.enabledOptions,
		f.disabledOptions != r.disabledOptions,
		f.values != r.values,
		!slices.Equal(f.permittedDomains, r.permittedDomains),
		!slices.Equal(f.restrictedDomains, r.restrictedDomains):
		return false
	}

	return true
}

// preparePattern compiles the regular expression if needed.  res is 1 if the
// regexp is ready, 0 if the pattern matches any URL, and -1 if the pattern is
// invalid.
func (f *NetworkRule) preparePattern() (res int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.regex != nil:
		return 1
	case f.invalid:
		return -1
	default:
		// Go on.
	}

	pattern := patternToRegexp(f.pattern)
	if pattern == RegexAnyCharacter || pattern == "" {
		return 0
	}

	if !f.IsOptionEnabled(OptionMatchCase) {
		pattern = "(?i)" + pattern
	}

	var err error
	if f.regex, err = regexp.Compile(pattern); err != nil {
		f.invalid = true

		return -1
	}

	return 1
}

// matchPattern uses the regex pattern to match the request URL.
func (f *NetworkRule) matchPattern(r *Request) (ok bool) {
	switch f.preparePattern() {
	case -1:
		return false
	case 0:
		return true
	default:
		return f.regex.MatchString(r.URL)
	}
}

// matchShortcut simply checks if shortcut is a substring of the URL.
func (f *NetworkRule) matchShortcut(r *Request) (ok bool) {
	return strings.Contains(r.URLLowerCase, f.Shortcut)
}

// matchSourceDomain checks if the rule is allowed on the request's source
// domain, which is what the $domain modifier restricts.  Requests without a
// source are top-level ones, so the request hostname is used instead.
func (f *NetworkRule) matchSourceDomain(r *Request) (ok bool) {
	if len(f.permittedDomains) == 0 && len(f.restrictedDomains) == 0 {
		return true
	}

	domain := r.SourceHostname
	if domain == "" {
		domain = r.Hostname
	}

	if len(f.restrictedDomains) > 0 && isDomainOrSubdomainOfAny(domain, f.restrictedDomains) {
		return false
	}

	return len(f.permittedDomains) == 0 || isDomainOrSubdomainOfAny(domain, f.permittedDomains)
}

// matchRequestType checks if the specified request type matches the rule
// properties.
func (f *NetworkRule) matchRequestType(requestType RequestType) (ok bool) {
	if f.permittedRequestTypes != 0 && (f.permittedRequestTypes&requestType) != requestType {
		return false
	}

	return f.restrictedRequestTypes == 0 || (f.restrictedRequestTypes&requestType) != requestType
}

// setRequestType permits or forbids the specified request type.
func (f *NetworkRule) setRequestType(requestType RequestType, permitted bool) {
	if permitted {
		f.permittedRequestTypes |= requestType
	} else {
		f.restrictedRequestTypes |= requestType
	}
}

// setOptionEnabled enables or disables the specified option.  It returns an
// error if this option cannot be used with this type of rules.
func (f *NetworkRule) setOptionEnabled(option NetworkRuleOption, enabled bool) (err error) {
	if f.Whitelist && (option&OptionBlacklistOnly) == option {
		return fmt.Errorf("modifier cannot be used in an allowlist rule: %d", option)
	}

	if !f.Whitelist && (option&OptionWhitelistOnly) == option {
		return fmt.Errorf("modifier cannot be used in a blocking rule: %d", option)
	}

	if enabled {
		f.enabledOptions |= option
	} else {
		f.disabledOptions |= option
	}

	return nil
}

// loadOptions loads all the filtering rule options.
func (f *NetworkRule) loadOptions(options string) (err error) {
	if options == "" {
		return nil
	}

	for _, option := range splitWithEscapeCharacter(options, ',', escapeCharacter) {
		name, value, _ := strings.Cut(option, "=")
		err = f.loadOption(strings.TrimSpace(name), value)
		if err != nil {
			return err
		}
	}

	// Rules of these types can be applied to documents only.
	if f.enabledOptions&(OptionWhitelistOnly&^OptionStealth|OptionPopup) != 0 {
		f.permittedRequestTypes = TypeDocument
	}

	if f.IsOptionEnabled(OptionRemoveHeader) && f.values.removeHeader == "" {
		return fmt.Errorf("empty $removeheader value in %q", f.RuleText)
	}

	if !f.Whitelist && f.IsOptionEnabled(OptionRedirect) && f.values.redirect == "" {
		return fmt.Errorf("empty $redirect value in %q", f.RuleText)
	}

	return nil
}

// loadOption loads specified option with its value, which may be empty.
//
//nolint:gocyclo
func (f *NetworkRule) loadOption(name, value string) (err error) {
	switch name {
	case "third-party", "3p", "~first-party", "~1p":
		return f.setOptionEnabled(OptionThirdParty, true)
	case "~third-party", "~3p", "first-party", "1p":
		return f.setOptionEnabled(OptionThirdParty, false)
	case "match-case":
		return f.setOptionEnabled(OptionMatchCase, true)
	case "~match-case":
		return f.setOptionEnabled(OptionMatchCase, false)
	case "important":
		return f.setOptionEnabled(OptionImportant, true)
	case "badfilter":
		return f.setOptionEnabled(OptionBadfilter, true)
	case "domain", "from":
		f.permittedDomains, f.restrictedDomains, err = loadDomains(value, "|")

		return err
	case "elemhide", "ehide":
		return f.setOptionEnabled(OptionElemhide, true)
	case "generichide", "ghide":
		return f.setOptionEnabled(OptionGenerichide, true)
	case "genericblock":
		return f.setOptionEnabled(OptionGenericblock, true)
	case "jsinject":
		return f.setOptionEnabled(OptionJsinject, true)
	case "urlblock":
		return f.setOptionEnabled(OptionUrlblock, true)
	case "content":
		return f.setOptionEnabled(OptionContent, true)
	case "extension":
		return f.setOptionEnabled(OptionExtension, true)
	case "~extension":
		f.enabledOptions &^= OptionExtension

		return nil
	case "document", "doc":
		if !f.Whitelist {
			f.setRequestType(TypeDocument, true)

			return nil
		}

		return f.setOptionEnabled(OptionDocumentWhitelist, true)
	case "stealth":
		return f.setOptionEnabled(OptionStealth, true)
	case "popup":
		return f.setOptionEnabled(OptionPopup, true)
	default:
		return f.loadValueOption(name, value)
	}
}

// loadValueOption loads the modifiers that carry a value and the content-type
// modifiers.
func (f *NetworkRule) loadValueOption(name, value string) (err error) {
	switch name {
	case "csp":
		f.values.csp = value

		return f.setOptionEnabled(OptionCsp, true)
	case "replace":
		f.values.replace = value

		return f.setOptionEnabled(OptionReplace, true)
	case "cookie":
		f.values.cookie = value

		return f.setOptionEnabled(OptionCookie, true)
	case "redirect", "redirect-rule":
		f.values.redirect = value

		return f.setOptionEnabled(OptionRedirect, true)
	case "removeparam":
		f.values.removeParam = value

		return f.setOptionEnabled(OptionRemoveParam, true)
	case "removeheader":
		f.values.removeHeader = value

		return f.setOptionEnabled(OptionRemoveHeader, true)
	}

	typeName, restricted := strings.CutPrefix(name, "~")
	if t, ok := requestTypeNames[typeName]; ok && typeName != "document" {
		f.setRequestType(t, !restricted)

		return nil
	}

	return fmt.Errorf("%w: unknown filter modifier: %s=%s", ErrUnsupportedRule, name, value)
}

// loadShortcut extracts a shortcut from the pattern.  The shortcut is the
// longest substring of the pattern that does not contain any special
// characters.
func (f *NetworkRule) loadShortcut() {
	var shortcut string
	if f.IsRegexRule() {
		shortcut = findRegexpShortcut(f.pattern)
	} else {
		shortcut = findShortcut(f.pattern)
	}

	// shortcut needs to be at least longer than 1 character
	if len(shortcut) > 1 {
		f.Shortcut = strings.ToLower(shortcut)
	}
}

// findShortcut searches for the longest substring of the pattern that does not
// contain any of the special characters which are:
//
//	*
//	^
//	|
func findShortcut(pattern string) (shortcut string) {
	for pattern != "" {
		i := strings.IndexAny(pattern, "*^|")
		if i == -1 {
			if len(pattern) > len(shortcut) {
				return pattern
			}

			break
		}

		if i > len(shortcut) {
			shortcut = pattern[:i]
		}

		pattern = pattern[i+1:]
	}

	return shortcut
}

// findRegexpShortcut searches for a shortcut inside of a regexp pattern.
// Shortcut in this case is a longest string with no regexp special characters.
// Complicated regexps are discarded right away.
func findRegexpShortcut(pattern string) (shortcut string) {
	pattern = pattern[1 : len(pattern)-1]

	// Lookaheads, optional parts and alternations can make any literal part
	// optional.
	if strings.ContainsAny(pattern, "?|") {
		return ""
	}

	// Placeholder for a special character.
	const special = "..."

	// Prepend special for the replacements below to work at the start.
	pattern = special + pattern

	pattern = reRegexpBrackets1.ReplaceAllString(pattern, "$1"+special)
	pattern = reRegexpBrackets2.ReplaceAllString(pattern, "$1"+special)
	pattern = reRegexpBrackets3.ReplaceAllString(pattern, "$1"+special)
	pattern = reRegexpEscapedCharacters.ReplaceAllString(pattern, "$1"+special)

	for _, part := range reRegexpSpecialCharacters.Split(pattern, -1) {
		if len(part) > len(shortcut) {
			shortcut = part
		}
	}

	return shortcut
}

// parseRuleText splits the rule text in multiple parts:
//
//   - pattern is a basic rule pattern which can be easily converted into a
//     regex;
//   - options is a string with all rule options;
//   - whitelist indicates if rule is an exception that unblocks requests.
func parseRuleText(ruleText string) (pattern, options string, whitelist bool, err error) {
	startIndex := 0
	if strings.HasPrefix(ruleText, maskWhiteList) {
		whitelist = true
		startIndex = len(maskWhiteList)
	}

	if len(ruleText) <= startIndex {
		return "", "", false, fmt.Errorf("the rule is too short: %q", ruleText)
	}

	pattern = ruleText[startIndex:]

	// Avoid parsing options inside of a regex rule.
	if isRegexPattern(pattern) && !strings.Contains(pattern, replaceOption+"=") {
		return pattern, "", whitelist, nil
	}

	foundEscaped := false
	for i := len(ruleText) - 2; i >= startIndex; i-- {
		if ruleText[i] != optionsDelimiter {
			continue
		}

		if i > startIndex && ruleText[i-1] == escapeCharacter {
			foundEscaped = true

			continue
		}

		pattern = ruleText[startIndex:i]
		options = ruleText[i+1:]
		if foundEscaped {
			options = strings.ReplaceAll(options, `\$`, "$")
		}

		break
	}

	return pattern, options, whitelist, nil
}

// HasWildcardPermittedDomain returns true if any of the permitted domains is a
// wildcard pattern like "example.*".  Such domains cannot be indexed by exact
// value.
func (f *NetworkRule) HasWildcardPermittedDomain() (ok bool) {
	return slices.ContainsFunc(f.permittedDomains, ufnet.IsWildcardDomain)
}

// HasWildcardDomain returns true if any of the permitted or restricted domains
// is a wildcard pattern.
func (f *NetworkRule) HasWildcardDomain() (ok bool) {
	return f.HasWildcardPermittedDomain() ||
		slices.ContainsFunc(f.restrictedDomains, ufnet.IsWildcardDomain)
}
