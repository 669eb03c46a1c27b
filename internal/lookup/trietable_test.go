package lookup_test

import (
	"testing"

	"github.com/SukkaW/tsurlfilter-sub001/internal/lookup"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrieTable_TryAdd(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		want assert.BoolAssertionFunc
		name string
		text string
	}{{
		want: assert.False,
		name: "no_shortcuts",
		text: testRuleTextNoShortcutsTiny,
	}, {
		want: assert.False,
		name: "no_shortcuts_url",
		text: testRuleTextNoShortcutsURL,
	}, {
		want: assert.True,
		name: "short_shortcut",
		text: testRuleTextShortShortcut,
	}, {
		want: assert.True,
		name: "success",
		text: testRuleText,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newStorage(t, tc.text)
			tbl := lookup.NewTrieTable(s, lookup.DefaultTrieConfig())
			assertRuleIsAdded(t, tbl, s, tc.want)
		})
	}
}

func TestTrieTable_MatchAll(t *testing.T) {
	t.Parallel()

	s := newStorage(t, testRuleTextAll+testRuleTextShortShortcut+testRule+"$script\n")
	tbl := lookup.NewTrieTable(s, lookup.DefaultTrieConfig())
	loadTable(t, tbl, s)

	testCases := []struct {
		name      string
		urlStr    string
		reqType   rules.RequestType
		wantTexts []string
	}{{
		name:      "no_match",
		urlStr:    testURLStrNoMatch,
		reqType:   rules.TypeOther,
		wantTexts: nil,
	}, {
		name:      "match",
		urlStr:    testURLStrWithDomain,
		reqType:   rules.TypeOther,
		wantTexts: []string{testRule},
	}, {
		name:      "same_shortcut",
		urlStr:    testURLStrWithDomain,
		reqType:   rules.TypeScript,
		wantTexts: []string{testRule, testRule + "$script"},
	}, {
		name:      "nested_shortcuts",
		urlStr:    testURLStrNoDomain,
		reqType:   rules.TypeOther,
		wantTexts: []string{testRuleNoDomain, testRule},
	}, {
		name:      "short",
		urlStr:    "https://tiny/",
		reqType:   rules.TypeOther,
		wantTexts: []string{testRuleShortShortcut},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := rules.NewRequest(tc.urlStr, "", tc.reqType)

			var got []string
			for _, rule := range tbl.MatchAll(r) {
				got = append(got, rule.Text())
			}

			assert.ElementsMatch(t, tc.wantTexts, got)
		})
	}
}

func BenchmarkTrieTable_MatchAll(b *testing.B) {
	s := newStorage(b, testRuleTextAll)
	tbl := lookup.NewTrieTable(s, lookup.DefaultTrieConfig())
	loadTable(b, tbl, s)

	r := rules.NewRequest(testURLStrWithDomain, testURLStrWithDomain, rules.TypeOther)

	var gotRules []*rules.NetworkRule

	b.ReportAllocs()
	for b.Loop() {
		gotRules = tbl.MatchAll(r)
	}

	require.Len(b, gotRules, 1)
}
