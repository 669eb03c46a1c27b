package lookup_test

import (
	"fmt"
	"testing"

	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/internal/lookup"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Common domains for tests.
const (
	testDomain      = "domain.example"
	testDomainNoMod = "nomod.domain.example"
	testDomainSub   = "sub.domain.example"
)

// Common rules for tests.
const (
	testRule                = "||" + testDomain + "^"
	testRuleNoDomain        = "||" + testDomainNoMod + "^"
	testRuleNoShortcutsTiny = "||ab^"
	testRuleNoShortcutsURL  = "|ws://^"
	testRuleShortShortcut   = "||tiny^"
	testRuleWithDomain      = "||" + testDomainSub + "^$domain=" + testDomain
	testRuleWildcardDomain  = "||" + testDomainSub + "^$domain=domain.*"
)

// Common text rules for tests.
const (
	testRuleText                = testRule + "\n"
	testRuleTextNoDomain        = testRuleNoDomain + "\n"
	testRuleTextNoShortcutsTiny = testRuleNoShortcutsTiny + "\n"
	testRuleTextNoShortcutsURL  = testRuleNoShortcutsURL + "\n"
	testRuleTextShortShortcut   = testRuleShortShortcut + "\n"
	testRuleTextWithDomain      = testRuleWithDomain + "\n"
	testRuleTextWildcardDomain  = testRuleWildcardDomain + "\n"

	testRuleTextAll = testRuleText +
		testRuleTextNoDomain +
		testRuleTextNoShortcutsTiny +
		testRuleTextNoShortcutsURL +
		testRuleTextWithDomain
)

// Common URL strings for tests.
const (
	testURLStrNoDomain      = "https://" + testDomainNoMod + "/"
	testURLStrNoMatch       = "https://no-match.example/"
	testURLStrWithDomain    = "https://" + testDomain + "/"
	testURLStrWithSubdomain = "https://" + testDomainSub + "/"
)

// newStorage is a helper that creates a rule storage for tests with the given
// rule text.
func newStorage(tb testing.TB, text string) (s *filterlist.RuleStorage) {
	tb.Helper()

	l := &filterlist.StringRuleList{
		RulesText: text,
	}

	s, err := filterlist.NewRuleStorage([]filterlist.RuleList{l})
	require.NoError(tb, err)

	return s
}

// assertMatch is a helper for matching a single rule in the table or, if
// wantRuleText is empty, that no rules are returned.
func assertMatch(
	tb testing.TB,
	tbl lookup.Table,
	r *rules.Request,
	wantRuleText string,
) {
	tb.Helper()

	gotRules := tbl.MatchAll(r)

	if wantRuleText == "" {
		assert.Empty(tb, gotRules)

		return
	}

	require.Len(tb, gotRules, 1)

	assert.Equal(tb, wantRuleText, gotRules[0].RuleText)
}

// assertRuleIsAdded is a helper to assert if a single rule has been added to
// tbl.
func assertRuleIsAdded(
	tb testing.TB,
	tbl lookup.Table,
	s *filterlist.RuleStorage,
	want assert.BoolAssertionFunc,
) {
	tb.Helper()

	var num int
	sc := s.NewRuleStorageScanner()
	for sc.Scan() {
		num++

		r, idx := sc.Rule()
		want(tb, tbl.TryAdd(r.(*rules.NetworkRule), idx))
	}

	assert.Equal(tb, 1, num)
}

// loadTable is a helper that loads rules from s to tbl.  It returns the texts
// of the accepted rules.
func loadTable(tb testing.TB, tbl lookup.Table, s *filterlist.RuleStorage) (accepted map[string]bool) {
	tb.Helper()

	accepted = map[string]bool{}

	sc := s.NewRuleStorageScanner()
	for sc.Scan() {
		r, idx := sc.Rule()
		if nr, ok := r.(*rules.NetworkRule); ok && tbl.TryAdd(nr, idx) {
			accepted[nr.Text()] = true
		}
	}

	assert.Equal(tb, len(accepted), tbl.RulesCount())

	return accepted
}

// propertyRules returns the text of a list with many similar rules of
// different kinds and the requests these rules are supposed to match.
func propertyRules() (text string, reqs []*rules.Request) {
	for i := range 100 {
		text += fmt.Sprintf("||host%d.example^\n", i)
		text += fmt.Sprintf("||cdn%d.example/ads/*$script\n", i)
		text += fmt.Sprintf("/banner%d/$domain=site%d.example\n", i, i)
		text += fmt.Sprintf("@@||host%d.example/allowed^$domain=site%d.example|site%d.test\n", i, i, i+1)

		reqs = append(
			reqs,
			rules.NewRequest(fmt.Sprintf("https://host%d.example/path", i), "", rules.TypeDocument),
			rules.NewRequest(
				fmt.Sprintf("https://cdn%d.example/ads/x.js", i),
				fmt.Sprintf("https://site%d.example/", i),
				rules.TypeScript,
			),
			rules.NewRequest(
				fmt.Sprintf("https://img.example/banner%d/", i),
				fmt.Sprintf("https://www.site%d.example/", i),
				rules.TypeImage,
			),
			rules.NewRequest(
				fmt.Sprintf("https://host%d.example/allowed/1", i),
				fmt.Sprintf("https://site%d.test/", i),
				rules.TypeImage,
			),
		)
	}

	return text, reqs
}

func TestTables_noFalseNegatives(t *testing.T) {
	t.Parallel()

	text, reqs := propertyRules()
	s := newStorage(t, text)

	seq := lookup.NewSeqScanTable(s)
	loadTable(t, seq, s)

	testCases := []struct {
		tbl  lookup.Table
		name string
	}{{
		tbl:  lookup.NewShortcutsTable(s),
		name: "shortcuts",
	}, {
		tbl:  lookup.NewDomainsTable(s),
		name: "domains",
	}, {
		tbl:  lookup.NewTrieTable(s, lookup.DefaultTrieConfig()),
		name: "trie",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			accepted := loadTable(t, tc.tbl, s)
			require.NotEmpty(t, accepted)

			for _, req := range reqs {
				got := tc.tbl.MatchAll(req)
				for _, want := range seq.MatchAll(req) {
					if accepted[want.Text()] {
						assert.Containsf(t, got, want, "url %q", req.URL)
					}
				}
			}
		})
	}
}
