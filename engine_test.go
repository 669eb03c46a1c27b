package urlfilter_test

import (
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/SukkaW/tsurlfilter-sub001"
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testListID is the common filter list identifier for tests.
const testListID = 1

func TestEngine_MatchRequest(t *testing.T) {
	t.Parallel()

	const (
		blockRule     = "||example.org^"
		allowRule     = "@@||example.org^$domain=foo.com"
		thirdParty    = "||example.org^$third-party"
		docRule       = "@@||example.com^$document"
		elemhideRule  = "@@||example.net^$elemhide"
		blockAdsRule  = "||ads.example^"
		importantRule = "||example.org^$important"
	)

	testCases := []struct {
		name      string
		rulesText string
		url       string
		sourceURL string
		wantBasic string
		reqType   rules.RequestType
	}{{
		name:      "blocked",
		rulesText: blockRule,
		url:       "https://example.org/img.png",
		sourceURL: "",
		wantBasic: blockRule,
		reqType:   rules.TypeImage,
	}, {
		name:      "not_matched",
		rulesText: blockRule,
		url:       "https://other.org",
		sourceURL: "",
		wantBasic: "",
		reqType:   rules.TypeOther,
	}, {
		name:      "allowlisted_source",
		rulesText: blockRule + "\n" + allowRule,
		url:       "https://example.org/img.png",
		sourceURL: "https://foo.com/",
		wantBasic: allowRule,
		reqType:   rules.TypeImage,
	}, {
		name:      "other_source",
		rulesText: blockRule + "\n" + allowRule,
		url:       "https://example.org/img.png",
		sourceURL: "https://bar.com/",
		wantBasic: blockRule,
		reqType:   rules.TypeImage,
	}, {
		name:      "important",
		rulesText: allowRule + "\n" + importantRule,
		url:       "https://example.org/img.png",
		sourceURL: "https://foo.com/",
		wantBasic: importantRule,
		reqType:   rules.TypeImage,
	}, {
		name:      "first_party",
		rulesText: thirdParty,
		url:       "https://example.org",
		sourceURL: "",
		wantBasic: "",
		reqType:   rules.TypeDocument,
	}, {
		name:      "document_allowlist",
		rulesText: blockAdsRule + "\n" + docRule,
		url:       "https://ads.example/script.js",
		sourceURL: "https://example.com/",
		wantBasic: docRule,
		reqType:   rules.TypeScript,
	}, {
		name:      "document_allowlist_other_source",
		rulesText: blockAdsRule + "\n" + docRule,
		url:       "https://ads.example/script.js",
		sourceURL: "https://example.net/",
		wantBasic: blockAdsRule,
		reqType:   rules.TypeScript,
	}, {
		name:      "elemhide_not_blocking",
		rulesText: elemhideRule,
		url:       "https://example.net/img.png",
		sourceURL: "",
		wantBasic: "",
		reqType:   rules.TypeImage,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			engine := newTestEngine(t, tc.rulesText)
			res := engine.MatchRequest(rules.NewRequest(tc.url, tc.sourceURL, tc.reqType))
			require.NotNil(t, res)

			basic := res.GetBasicResult()
			if tc.wantBasic == "" {
				assert.Nil(t, basic)

				return
			}

			require.NotNil(t, basic)
			assert.Equal(t, tc.wantBasic, basic.Text())
		})
	}
}

func TestEngine_MatchRequest_auxiliary(t *testing.T) {
	t.Parallel()

	const (
		cspRule      = "||example.org^$csp=script-src 'none'"
		blockRule    = "||example.org^$script"
		redirectRule = "||example.org/ads.js$script,redirect=noopjs"
	)

	engine := newTestEngine(t, cspRule+"\n"+blockRule+"\n"+redirectRule)

	req := rules.NewRequest("https://example.org/ads.js", "", rules.TypeScript)
	res := engine.MatchRequest(req)

	require.NotNil(t, res.CspRule)
	assert.Equal(t, cspRule, res.CspRule.Text())

	require.NotNil(t, res.RedirectRule)
	assert.Equal(t, redirectRule, res.RedirectRule.Text())

	require.NotNil(t, res.BasicRule)
	assert.Equal(t, redirectRule, res.BasicRule.Text())

	assert.Nil(t, res.DocumentRule)
	assert.Nil(t, res.CookieRule)
	assert.Nil(t, res.ReplaceRule)
	assert.Nil(t, res.StealthRule)
}

func TestEngine_GetCosmeticResult(t *testing.T) {
	t.Parallel()

	const rulesText = `##banner_generic
example.net##banner_specific
example.net#%#window.__test = 1;
@@||example.net^$elemhide`

	engine := newTestEngine(t, rulesText)
	assert.Equal(t, 4, engine.RulesCount())

	t.Run("all", func(t *testing.T) {
		t.Parallel()

		res := engine.GetCosmeticResult("example.net", rules.CosmeticOptionAll)
		assert.Equal(t, []string{"banner_generic"}, res.ElementHiding.Generic)
		assert.Equal(t, []string{"banner_specific"}, res.ElementHiding.Specific)
		assert.Equal(t, []string{"window.__test = 1;"}, res.JS.Specific)
	})

	t.Run("elemhide", func(t *testing.T) {
		t.Parallel()

		req := rules.NewRequest("https://example.net/", "", rules.TypeDocument)
		opt := engine.MatchRequest(req).GetCosmeticOption()
		assert.Equal(t, rules.CosmeticOptionJS, opt)

		res := engine.GetCosmeticResult("example.net", opt)
		assert.Nil(t, res.ElementHiding.Generic)
		assert.Nil(t, res.ElementHiding.Specific)
		assert.Equal(t, []string{"window.__test = 1;"}, res.JS.Specific)
	})
}

func FuzzNewEngine(f *testing.F) {
	for _, seed := range []string{
		"",
		" ",
		"\n",
		"1",
		"!",
		"#",
		"# comment",
		"##banner",
		"example.org#@#banner",
		"127.0.0.1",
		"example.test",
		"||example.org^",
		"/regex/",
		"/[/",
		"@@||example.org^$third-party",
		"||example.org^$domain=example.*",
		"||example.org^$badfilter",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, rulesText string) {
		assert.NotPanics(t, func() {
			engine := newTestEngine(t, rulesText)
			_ = engine.MatchRequest(rules.NewRequest("https://example.org/", "", rules.TypeOther))
		})
	})
}

// newTestStorage returns a rule storage with a single list of rulesText and
// adds its close method to tb's cleanup.
func newTestStorage(tb testing.TB, rulesText string) (s *filterlist.RuleStorage) {
	tb.Helper()

	lists := []filterlist.RuleList{
		&filterlist.StringRuleList{
			ID:             testListID,
			RulesText:      rulesText,
			IgnoreCosmetic: false,
		},
	}

	s, err := filterlist.NewRuleStorage(lists)
	require.NoError(tb, err)

	testutil.CleanupAndRequireSuccess(tb, s.Close)

	return s
}

// newTestEngine builds filtering engine from the specified set of rules and
// adds its rule storage close method to tb's cleanup.
func newTestEngine(tb testing.TB, rulesText string) (engine *urlfilter.Engine) {
	tb.Helper()

	return urlfilter.NewEngine(newTestStorage(tb, rulesText))
}
