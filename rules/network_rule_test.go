package rules_test

import (
	"testing"

	"github.com/SukkaW/tsurlfilter-sub001/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestNetworkRule is a helper that creates a network rule and requires no
// error.
func newTestNetworkRule(tb testing.TB, text string) (r *rules.NetworkRule) {
	tb.Helper()

	r, err := rules.NewNetworkRule(text, testFilterListID)
	require.NoError(tb, err)
	require.NotNil(tb, r)

	return r
}

func TestNewNetworkRule(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		in            string
		wantPattern   string
		wantShortcut  string
		wantWhitelist bool
		wantRegex     bool
	}{{
		name:          "hostname",
		in:            "||example.org^",
		wantPattern:   "||example.org^",
		wantShortcut:  "example.org",
		wantWhitelist: false,
		wantRegex:     false,
	}, {
		name:          "allowlist",
		in:            "@@||example.org^$third-party",
		wantPattern:   "||example.org^",
		wantShortcut:  "example.org",
		wantWhitelist: true,
		wantRegex:     false,
	}, {
		name:          "trailing_any",
		in:            "||example.org/*",
		wantPattern:   "||example.org^",
		wantShortcut:  "example.org",
		wantWhitelist: false,
		wantRegex:     false,
	}, {
		name:          "upper_case",
		in:            "||Example.ORG/Path",
		wantPattern:   "||Example.ORG/Path",
		wantShortcut:  "example.org/path",
		wantWhitelist: false,
		wantRegex:     false,
	}, {
		name:          "regex",
		in:            `/banner\d+/`,
		wantPattern:   `/banner\d+/`,
		wantShortcut:  "banner",
		wantWhitelist: false,
		wantRegex:     true,
	}, {
		name:          "regex_optional",
		in:            "/ads?/",
		wantPattern:   "/ads?/",
		wantShortcut:  "",
		wantWhitelist: false,
		wantRegex:     true,
	}, {
		name:          "regex_alternation",
		in:            "/(banner|advert)/",
		wantPattern:   "/(banner|advert)/",
		wantShortcut:  "",
		wantWhitelist: false,
		wantRegex:     true,
	}, {
		name:          "empty_pattern_with_domain",
		in:            "$domain=example.org",
		wantPattern:   "",
		wantShortcut:  "",
		wantWhitelist: false,
		wantRegex:     false,
	}, {
		name:          "short_shortcut",
		in:            "|a^",
		wantPattern:   "|a^",
		wantShortcut:  "",
		wantWhitelist: false,
		wantRegex:     false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := newTestNetworkRule(t, tc.in)

			assert.Equal(t, tc.in, r.Text())
			assert.Equal(t, testFilterListID, r.GetFilterListID())
			assert.Equal(t, tc.wantPattern, r.Pattern())
			assert.Equal(t, tc.wantShortcut, r.Shortcut)
			assert.Equal(t, tc.wantWhitelist, r.Whitelist)
			assert.Equal(t, tc.wantRegex, r.IsRegexRule())
		})
	}
}

func TestNewNetworkRule_errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		in      string
		wantErr error
	}{{
		name:    "too_short",
		in:      "@@",
		wantErr: nil,
	}, {
		name:    "too_wide_any",
		in:      "*",
		wantErr: rules.ErrTooWideRule,
	}, {
		name:    "too_wide_start",
		in:      "||",
		wantErr: rules.ErrTooWideRule,
	}, {
		name:    "too_wide_important",
		in:      "*$important",
		wantErr: rules.ErrTooWideRule,
	}, {
		name:    "unknown_modifier",
		in:      "||example.org^$unknown",
		wantErr: rules.ErrUnsupportedRule,
	}, {
		name:    "whitelist_only_in_blocking",
		in:      "||example.org^$elemhide",
		wantErr: nil,
	}, {
		name:    "blocking_only_in_whitelist",
		in:      "@@||example.org^$popup",
		wantErr: nil,
	}, {
		name:    "empty_removeheader",
		in:      "||example.org^$removeheader",
		wantErr: nil,
	}, {
		name:    "empty_redirect",
		in:      "||example.org^$redirect",
		wantErr: nil,
	}, {
		name:    "empty_domain",
		in:      "||example.org^$domain=",
		wantErr: nil,
	}, {
		name:    "invalid_domain",
		in:      "||example.org^$domain=exa mple.org",
		wantErr: nil,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := rules.NewNetworkRule(tc.in, testFilterListID)
			require.Error(t, err)
			assert.Nil(t, r)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestNetworkRule_options(t *testing.T) {
	t.Parallel()

	t.Run("third_party", func(t *testing.T) {
		t.Parallel()

		r := newTestNetworkRule(t, "||example.org^$third-party")
		assert.True(t, r.IsOptionEnabled(rules.OptionThirdParty))

		r = newTestNetworkRule(t, "||example.org^$1p")
		assert.True(t, r.IsOptionDisabled(rules.OptionThirdParty))
		assert.False(t, r.IsOptionEnabled(rules.OptionThirdParty))
	})

	t.Run("document", func(t *testing.T) {
		t.Parallel()

		r := newTestNetworkRule(t, "@@||example.org^$document")
		assert.True(t, r.IsOptionEnabled(rules.OptionDocumentWhitelist))
		assert.True(t, r.IsDocumentWhitelistRule())
		assert.Equal(t, rules.TypeDocument, r.PermittedRequestTypes())

		r = newTestNetworkRule(t, "||example.org^$document")
		assert.Equal(t, rules.NetworkRuleOption(0), r.EnabledOptions())
		assert.Equal(t, rules.TypeDocument, r.PermittedRequestTypes())
	})

	t.Run("elemhide", func(t *testing.T) {
		t.Parallel()

		r := newTestNetworkRule(t, "@@||example.org^$ehide")
		assert.True(t, r.IsOptionEnabled(rules.OptionElemhide))
		assert.False(t, r.IsDocumentWhitelistRule())
		assert.Equal(t, rules.TypeDocument, r.PermittedRequestTypes())
	})

	t.Run("request_types", func(t *testing.T) {
		t.Parallel()

		r := newTestNetworkRule(t, "||example.org^$script,~image,xhr")
		assert.Equal(t, rules.TypeScript|rules.TypeXmlhttprequest, r.PermittedRequestTypes())
		assert.Equal(t, rules.TypeImage, r.RestrictedRequestTypes())
	})

	t.Run("domains", func(t *testing.T) {
		t.Parallel()

		r := newTestNetworkRule(t, "||example.org^$domain=Example.com|~sub.example.com")
		assert.Equal(t, []string{"example.com"}, r.PermittedDomains())
		assert.Equal(t, []string{"sub.example.com"}, r.RestrictedDomains())
		assert.False(t, r.IsGeneric())
		assert.False(t, r.HasWildcardDomain())

		r = newTestNetworkRule(t, "||example.org^$domain=example.*")
		assert.True(t, r.HasWildcardPermittedDomain())
		assert.True(t, r.HasWildcardDomain())
	})

	t.Run("values", func(t *testing.T) {
		t.Parallel()

		r := newTestNetworkRule(t, "||example.org^$csp=script-src 'self'")
		assert.True(t, r.IsOptionEnabled(rules.OptionCsp))
		assert.Equal(t, "script-src 'self'", r.CSP())

		r = newTestNetworkRule(t, "||example.org^$redirect=noopjs")
		assert.True(t, r.IsOptionEnabled(rules.OptionRedirect))
		assert.Equal(t, "noopjs", r.Redirect())

		r = newTestNetworkRule(t, "@@||example.org^$redirect")
		assert.Empty(t, r.Redirect())

		r = newTestNetworkRule(t, "||example.org^$removeparam=utm_source")
		assert.Equal(t, "utm_source", r.RemoveParam())

		r = newTestNetworkRule(t, "||example.org^$removeparam")
		assert.True(t, r.IsOptionEnabled(rules.OptionRemoveParam))
		assert.Empty(t, r.RemoveParam())

		r = newTestNetworkRule(t, "||example.org^$removeheader=refresh")
		assert.Equal(t, "refresh", r.RemoveHeader())

		r = newTestNetworkRule(t, "||example.org^$cookie=NAME")
		assert.Equal(t, "NAME", r.Cookie())
	})

	t.Run("no_pattern_auxiliary", func(t *testing.T) {
		t.Parallel()

		r := newTestNetworkRule(t, "$removeparam=utm_source")
		assert.Empty(t, r.Pattern())
		assert.True(t, r.IsGeneric())
	})
}

func TestNetworkRule_Match(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		rule      string
		url       string
		sourceURL string
		reqType   rules.RequestType
		want      bool
	}{{
		name:      "hostname",
		rule:      "||example.org^",
		url:       "https://example.org/a",
		sourceURL: "",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "subdomain",
		rule:      "||example.org^",
		url:       "https://sub.example.org/",
		sourceURL: "",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "other_hostname",
		rule:      "||example.org^",
		url:       "https://notexample.org/",
		sourceURL: "",
		reqType:   rules.TypeScript,
		want:      false,
	}, {
		name:      "third_party_same",
		rule:      "||example.org^$third-party",
		url:       "https://example.org/",
		sourceURL: "https://www.example.org/",
		reqType:   rules.TypeScript,
		want:      false,
	}, {
		name:      "third_party_other",
		rule:      "||example.org^$third-party",
		url:       "https://example.org/",
		sourceURL: "https://example.com/",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "first_party_other",
		rule:      "||example.org^$~third-party",
		url:       "https://example.org/",
		sourceURL: "https://example.com/",
		reqType:   rules.TypeScript,
		want:      false,
	}, {
		name:      "permitted_type",
		rule:      "||example.org^$script",
		url:       "https://example.org/",
		sourceURL: "",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "not_permitted_type",
		rule:      "||example.org^$script",
		url:       "https://example.org/",
		sourceURL: "",
		reqType:   rules.TypeImage,
		want:      false,
	}, {
		name:      "restricted_type",
		rule:      "||example.org^$~script",
		url:       "https://example.org/",
		sourceURL: "",
		reqType:   rules.TypeScript,
		want:      false,
	}, {
		name:      "not_restricted_type",
		rule:      "||example.org^$~script",
		url:       "https://example.org/",
		sourceURL: "",
		reqType:   rules.TypeImage,
		want:      true,
	}, {
		name:      "permitted_domain",
		rule:      "||example.org^$domain=example.com",
		url:       "https://example.org/",
		sourceURL: "https://sub.example.com/",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "not_permitted_domain",
		rule:      "||example.org^$domain=example.com",
		url:       "https://example.org/",
		sourceURL: "https://example.net/",
		reqType:   rules.TypeScript,
		want:      false,
	}, {
		name:      "restricted_domain",
		rule:      "||example.org^$domain=~example.com",
		url:       "https://example.org/",
		sourceURL: "https://example.com/",
		reqType:   rules.TypeScript,
		want:      false,
	}, {
		name:      "not_restricted_domain",
		rule:      "||example.org^$domain=~example.com",
		url:       "https://example.org/",
		sourceURL: "https://example.net/",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "domain_without_source",
		rule:      "||example.org^$domain=example.org",
		url:       "https://example.org/",
		sourceURL: "",
		reqType:   rules.TypeDocument,
		want:      true,
	}, {
		name:      "wildcard_domain",
		rule:      "||example.org^$domain=example.*",
		url:       "https://example.org/",
		sourceURL: "https://example.co.uk/",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "match_case",
		rule:      "||example.org/Path$match-case",
		url:       "https://example.org/Path",
		sourceURL: "",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "match_case_differs",
		rule:      "||example.org/Path$match-case",
		url:       "https://example.org/path",
		sourceURL: "",
		reqType:   rules.TypeScript,
		want:      false,
	}, {
		name:      "case_insensitive",
		rule:      "||example.org/Path",
		url:       "https://EXAMPLE.org/path",
		sourceURL: "",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "regex",
		rule:      `/banner\d+/`,
		url:       "https://example.org/banner123",
		sourceURL: "",
		reqType:   rules.TypeImage,
		want:      true,
	}, {
		name:      "regex_no_match",
		rule:      `/banner\d+/`,
		url:       "https://example.org/banner",
		sourceURL: "",
		reqType:   rules.TypeImage,
		want:      false,
	}, {
		name:      "start_anchor",
		rule:      "|https://example.org",
		url:       "http://example.com/?https://example.org",
		sourceURL: "",
		reqType:   rules.TypeOther,
		want:      false,
	}, {
		name:      "end_anchor",
		rule:      "example.org|",
		url:       "https://example.org",
		sourceURL: "",
		reqType:   rules.TypeOther,
		want:      true,
	}, {
		name:      "end_anchor_no_match",
		rule:      "example.org|",
		url:       "https://example.org/",
		sourceURL: "",
		reqType:   rules.TypeOther,
		want:      false,
	}, {
		name:      "empty_pattern",
		rule:      "$domain=example.com",
		url:       "https://cdn.example.net/x.js",
		sourceURL: "https://example.com/",
		reqType:   rules.TypeScript,
		want:      true,
	}, {
		name:      "invalid_regex",
		rule:      "/ban(ner/",
		url:       "https://example.org/ban(ner",
		sourceURL: "",
		reqType:   rules.TypeScript,
		want:      false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := newTestNetworkRule(t, tc.rule)
			req := rules.NewRequest(tc.url, tc.sourceURL, tc.reqType)

			assert.Equal(t, tc.want, r.Match(req))
		})
	}
}

func TestNetworkRule_Priority(t *testing.T) {
	t.Parallel()

	// Sorted by ascending priority.
	texts := []string{
		"||example.org^",
		"||example.org^$script",
		"||example.org^$script,third-party",
		"||example.org^$domain=example.com",
		"||example.org^$redirect=noopjs",
		"@@||example.org^",
		"@@||example.org^$script,domain=example.com",
		"||example.org^$important",
		"@@||example.org^$important",
	}

	prev := newTestNetworkRule(t, texts[0])
	for _, text := range texts[1:] {
		r := newTestNetworkRule(t, text)

		assert.Truef(t, r.IsHigherPriority(prev), "%q must be above %q", r, prev)
		assert.Falsef(t, prev.IsHigherPriority(r), "%q must be below %q", prev, r)

		prev = r
	}

	a := newTestNetworkRule(t, "||example.org^$script")
	b := newTestNetworkRule(t, "||example.com^$image")
	assert.Equal(t, a.Priority(), b.Priority())
	assert.False(t, a.IsHigherPriority(b))
	assert.False(t, b.IsHigherPriority(a))
}

func TestNetworkRule_NegatesBadfilter(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		badfilter string
		rule      string
		want      bool
	}{{
		name:      "same",
		badfilter: "||example.org^$badfilter",
		rule:      "||example.org^",
		want:      true,
	}, {
		name:      "same_with_options",
		badfilter: "||example.org^$script,badfilter",
		rule:      "||example.org^$script",
		want:      true,
	}, {
		name:      "different_options",
		badfilter: "||example.org^$badfilter",
		rule:      "||example.org^$script",
		want:      false,
	}, {
		name:      "allowlist",
		badfilter: "||example.org^$badfilter",
		rule:      "@@||example.org^",
		want:      false,
	}, {
		name:      "different_pattern",
		badfilter: "||example.org^$badfilter",
		rule:      "||example.com^",
		want:      false,
	}, {
		name:      "same_domains",
		badfilter: "||example.org^$domain=example.com,badfilter",
		rule:      "||example.org^$domain=example.com",
		want:      true,
	}, {
		name:      "different_domains",
		badfilter: "||example.org^$domain=example.com,badfilter",
		rule:      "||example.org^$domain=example.net",
		want:      false,
	}, {
		name:      "different_values",
		badfilter: "||example.org^$redirect=noopjs,badfilter",
		rule:      "||example.org^$redirect=noopcss",
		want:      false,
	}, {
		name:      "not_badfilter",
		badfilter: "||example.org^",
		rule:      "||example.org^",
		want:      false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bf := newTestNetworkRule(t, tc.badfilter)
			r := newTestNetworkRule(t, tc.rule)

			assert.Equal(t, tc.want, bf.NegatesBadfilter(r))
		})
	}
}

func BenchmarkNetworkRule_Match(b *testing.B) {
	r := newTestNetworkRule(b, "||example.org^$third-party,script")
	req := rules.NewRequest("https://sub.example.org/path/script.js", "https://example.com/", rules.TypeScript)

	var ok bool

	b.ReportAllocs()
	for b.Loop() {
		ok = r.Match(req)
	}

	assert.True(b, ok)
}
