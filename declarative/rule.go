package declarative

import (
	"fmt"
	"path"
	"strings"

	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// ActionType is the type of the declarative rule action.
type ActionType string

// ActionType values.
const (
	ActionBlock            ActionType = "block"
	ActionAllow            ActionType = "allow"
	ActionAllowAllRequests ActionType = "allowAllRequests"
	ActionRedirect         ActionType = "redirect"
	ActionModifyHeaders    ActionType = "modifyHeaders"
)

// ResourceType is the resource type of a request in the declarative rules.
type ResourceType string

// ResourceType values.
const (
	ResourceMainFrame      ResourceType = "main_frame"
	ResourceSubFrame       ResourceType = "sub_frame"
	ResourceStylesheet     ResourceType = "stylesheet"
	ResourceScript         ResourceType = "script"
	ResourceImage          ResourceType = "image"
	ResourceFont           ResourceType = "font"
	ResourceObject         ResourceType = "object"
	ResourceXMLHTTPRequest ResourceType = "xmlhttprequest"
	ResourcePing           ResourceType = "ping"
	ResourceMedia          ResourceType = "media"
	ResourceWebSocket      ResourceType = "websocket"
	ResourceOther          ResourceType = "other"
)

// resourceTypes maps the request types to the resource types.  The order is
// the order of the resource types in the converted rules.
var resourceTypes = []struct {
	resType ResourceType
	reqType rules.RequestType
}{
	{resType: ResourceMainFrame, reqType: rules.TypeDocument},
	{resType: ResourceSubFrame, reqType: rules.TypeSubdocument},
	{resType: ResourceStylesheet, reqType: rules.TypeStylesheet},
	{resType: ResourceScript, reqType: rules.TypeScript},
	{resType: ResourceImage, reqType: rules.TypeImage},
	{resType: ResourceFont, reqType: rules.TypeFont},
	{resType: ResourceObject, reqType: rules.TypeObject},
	{resType: ResourceXMLHTTPRequest, reqType: rules.TypeXmlhttprequest},
	{resType: ResourcePing, reqType: rules.TypePing},
	{resType: ResourceMedia, reqType: rules.TypeMedia},
	{resType: ResourceWebSocket, reqType: rules.TypeWebsocket},
	{resType: ResourceOther, reqType: rules.TypeOther},
}

// DomainType is the party of the request.
type DomainType string

// DomainType values.
const (
	DomainTypeFirstParty DomainType = "firstParty"
	DomainTypeThirdParty DomainType = "thirdParty"
)

// Header operations.
const (
	HeaderOperationAppend = "append"
	HeaderOperationRemove = "remove"
)

// Rule is a single declarative rule.
type Rule struct {
	Action    *Action    `json:"action"`
	Condition *Condition `json:"condition"`
	ID        int        `json:"id"`
	Priority  int        `json:"priority"`
}

// Action is the action taken when the rule matches.
type Action struct {
	Redirect        *Redirect           `json:"redirect,omitempty"`
	Type            ActionType          `json:"type"`
	RequestHeaders  []*ModifyHeaderInfo `json:"requestHeaders,omitempty"`
	ResponseHeaders []*ModifyHeaderInfo `json:"responseHeaders,omitempty"`
}

// Redirect describes how a request is redirected.
type Redirect struct {
	Transform     *URLTransform `json:"transform,omitempty"`
	ExtensionPath string        `json:"extensionPath,omitempty"`
}

// URLTransform describes the changes of the request URL.
type URLTransform struct {
	// Query is the new query of the URL.  An empty string clears the query.
	Query *string `json:"query,omitempty"`

	QueryTransform *QueryTransform `json:"queryTransform,omitempty"`
}

// QueryTransform describes the changes of the URL query.
type QueryTransform struct {
	RemoveParams []string `json:"removeParams,omitempty"`
}

// ModifyHeaderInfo describes a change of a header.
type ModifyHeaderInfo struct {
	Header    string `json:"header"`
	Operation string `json:"operation"`
	Value     string `json:"value,omitempty"`
}

// Condition is the condition under which the rule is triggered.
type Condition struct {
	URLFilter                string         `json:"urlFilter,omitempty"`
	RegexFilter              string         `json:"regexFilter,omitempty"`
	DomainType               DomainType     `json:"domainType,omitempty"`
	InitiatorDomains         []string       `json:"initiatorDomains,omitempty"`
	ExcludedInitiatorDomains []string       `json:"excludedInitiatorDomains,omitempty"`
	ResourceTypes            []ResourceType `json:"resourceTypes,omitempty"`
	ExcludedResourceTypes    []ResourceType `json:"excludedResourceTypes,omitempty"`
	IsURLFilterCaseSensitive bool           `json:"isUrlFilterCaseSensitive,omitempty"`
}

// isRegexp returns true if the rule uses a regular expression.
func (r *Rule) isRegexp() (ok bool) {
	return r.Condition.RegexFilter != ""
}

// unsupportedOptions are the network rule options that have no declarative
// equivalent.
var unsupportedOptions = []struct {
	name   string
	option rules.NetworkRuleOption
}{
	{name: "replace", option: rules.OptionReplace},
	{name: "cookie", option: rules.OptionCookie},
	{name: "stealth", option: rules.OptionStealth},
	{name: "popup", option: rules.OptionPopup},
}

// documentOnlyOptions are the options of the allowlist rules that only change
// the cosmetic filtering of a page.
const documentOnlyOptions = rules.OptionElemhide | rules.OptionGenerichide |
	rules.OptionGenericblock | rules.OptionJsinject | rules.OptionContent |
	rules.OptionExtension

// checkSupported returns an error wrapping [ErrUnsupportedModifier] if r has
// no declarative equivalent.
func checkSupported(r *rules.NetworkRule) (err error) {
	for _, o := range unsupportedOptions {
		if r.IsOptionEnabled(o.option) {
			return fmt.Errorf("%w: $%s", ErrUnsupportedModifier, o.name)
		}
	}

	if r.HasWildcardDomain() {
		return fmt.Errorf("%w: $domain with a wildcard tld", ErrUnsupportedModifier)
	}

	if !r.Whitelist {
		return nil
	}

	switch {
	case r.IsOptionEnabled(rules.OptionCsp):
		return fmt.Errorf("%w: $csp in allowlist rule", ErrUnsupportedModifier)
	case r.IsOptionEnabled(rules.OptionRedirect):
		return fmt.Errorf("%w: $redirect in allowlist rule", ErrUnsupportedModifier)
	case r.IsOptionEnabled(rules.OptionRemoveParam):
		return fmt.Errorf("%w: $removeparam in allowlist rule", ErrUnsupportedModifier)
	case r.IsOptionEnabled(rules.OptionRemoveHeader):
		return fmt.Errorf("%w: $removeheader in allowlist rule", ErrUnsupportedModifier)
	case !r.IsOptionEnabled(rules.OptionUrlblock) && r.EnabledOptions()&documentOnlyOptions != 0:
		return fmt.Errorf("%w: cosmetic allowlist modifiers", ErrUnsupportedModifier)
	}

	return nil
}

// convertRule converts r into one or more declarative rules.  The identifiers
// of the returned rules are not set.  r must be supported, see
// [checkSupported].
func convertRule(r *rules.NetworkRule, resourcesPath string) (res []*Rule, err error) {
	cond, err := newCondition(r)
	if err != nil {
		return nil, err
	}

	priority := 1 + int(r.Priority())

	switch {
	case r.Whitelist && r.IsOptionEnabled(rules.OptionUrlblock):
		cond.ResourceTypes = []ResourceType{ResourceMainFrame, ResourceSubFrame}
		cond.ExcludedResourceTypes = nil

		return single(ActionAllowAllRequests, cond, priority), nil
	case r.Whitelist:
		return single(ActionAllow, cond, priority), nil
	case r.IsOptionEnabled(rules.OptionRedirect):
		return redirectRules(r, cond, priority, resourcesPath), nil
	case r.IsOptionEnabled(rules.OptionRemoveParam):
		return removeParamRules(r, cond, priority)
	case r.IsOptionEnabled(rules.OptionRemoveHeader):
		return removeHeaderRules(r, cond, priority), nil
	case r.IsOptionEnabled(rules.OptionCsp):
		return []*Rule{{
			Action: &Action{
				Type: ActionModifyHeaders,
				ResponseHeaders: []*ModifyHeaderInfo{{
					Header:    "content-security-policy",
					Operation: HeaderOperationAppend,
					Value:     r.CSP(),
				}},
			},
			Condition: cond,
			Priority:  priority,
		}}, nil
	default:
		return single(ActionBlock, cond, priority), nil
	}
}

// single returns a single declarative rule with a simple action.
func single(typ ActionType, cond *Condition, priority int) (res []*Rule) {
	return []*Rule{{
		Action:    &Action{Type: typ},
		Condition: cond,
		Priority:  priority,
	}}
}

// redirectRules returns a blocking rule with the priority and a redirecting
// rule with a higher one, so that the request is blocked even if the resource
// is unavailable.
func redirectRules(r *rules.NetworkRule, cond *Condition, priority int, resourcesPath string) (res []*Rule) {
	redirectCond := *cond

	return []*Rule{{
		Action:    &Action{Type: ActionBlock},
		Condition: cond,
		Priority:  priority,
	}, {
		Action: &Action{
			Type: ActionRedirect,
			Redirect: &Redirect{
				ExtensionPath: path.Join("/", resourcesPath, r.Redirect()),
			},
		},
		Condition: &redirectCond,
		Priority:  priority + 1,
	}}
}

// removeParamRules returns the rule removing the query parameters.
func removeParamRules(r *rules.NetworkRule, cond *Condition, priority int) (res []*Rule, err error) {
	param := r.RemoveParam()
	if strings.HasPrefix(param, "~") || strings.HasPrefix(param, "/") {
		return nil, fmt.Errorf("%w: $removeparam with a regexp or an inversion", ErrUnsupportedModifier)
	}

	transform := &URLTransform{}
	if param == "" {
		empty := ""
		transform.Query = &empty
	} else {
		transform.QueryTransform = &QueryTransform{
			RemoveParams: []string{param},
		}
	}

	return []*Rule{{
		Action: &Action{
			Type: ActionRedirect,
			Redirect: &Redirect{
				Transform: transform,
			},
		},
		Condition: cond,
		Priority:  priority,
	}}, nil
}

// removeHeaderRules returns the rule removing a header.
func removeHeaderRules(r *rules.NetworkRule, cond *Condition, priority int) (res []*Rule) {
	action := &Action{Type: ActionModifyHeaders}

	header := r.RemoveHeader()
	info := &ModifyHeaderInfo{Operation: HeaderOperationRemove}
	if name, ok := strings.CutPrefix(header, "request:"); ok {
		info.Header = name
		action.RequestHeaders = []*ModifyHeaderInfo{info}
	} else {
		info.Header = header
		action.ResponseHeaders = []*ModifyHeaderInfo{info}
	}

	return []*Rule{{
		Action:    action,
		Condition: cond,
		Priority:  priority,
	}}
}

// newCondition returns the condition of the declarative rules of r.
func newCondition(r *rules.NetworkRule) (cond *Condition, err error) {
	cond = &Condition{
		InitiatorDomains:         r.PermittedDomains(),
		ExcludedInitiatorDomains: r.RestrictedDomains(),
		ResourceTypes:            toResourceTypes(r.PermittedRequestTypes()),
		ExcludedResourceTypes:    toResourceTypes(r.RestrictedRequestTypes()),
		IsURLFilterCaseSensitive: r.IsOptionEnabled(rules.OptionMatchCase),
	}

	pattern := r.Pattern()
	if r.IsRegexRule() {
		cond.RegexFilter = pattern[1 : len(pattern)-1]
	} else if pattern != rules.MaskStartURL && pattern != rules.MaskAnyCharacter {
		cond.URLFilter = pattern
	}

	switch {
	case r.IsOptionEnabled(rules.OptionThirdParty):
		cond.DomainType = DomainTypeThirdParty
	case r.IsOptionDisabled(rules.OptionThirdParty):
		cond.DomainType = DomainTypeFirstParty
	}

	for _, c := range cond.URLFilter {
		if c > 0x7f {
			return nil, fmt.Errorf("%w: non-ascii url filter", ErrUnsupportedModifier)
		}
	}

	return cond, nil
}

// toResourceTypes converts the request types into the resource types.
func toResourceTypes(t rules.RequestType) (res []ResourceType) {
	for _, rt := range resourceTypes {
		if t&rt.reqType != 0 {
			res = append(res, rt.resType)
		}
	}

	return res
}
