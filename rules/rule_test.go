package rules_test

import (
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
	"github.com/stretchr/testify/assert"
)

// testFilterListID is a test filter list ID.
const testFilterListID = 1

func TestNewRule(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in         string
		name       string
		wantErrMsg string
		wantNil    bool
	}{{
		in:         "",
		name:       "empty",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "  ",
		name:       "double_space",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "! comment",
		name:       "comment",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "#",
		name:       "comment_hash",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "# comment",
		name:       "comment_hash_space",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "[Adblock Plus 2.0]",
		name:       "header",
		wantErrMsg: "",
		wantNil:    true,
	}, {
		in:         "##banner",
		name:       "element_hiding",
		wantErrMsg: "",
		wantNil:    false,
	}, {
		in:         "example.org#%#window.x = 1;",
		name:       "script",
		wantErrMsg: "",
		wantNil:    false,
	}, {
		in:         "||example.test^",
		name:       "network",
		wantErrMsg: "",
		wantNil:    false,
	}, {
		in:         "@@||example.test^$third-party",
		name:       "network_allowlist",
		wantErrMsg: "",
		wantNil:    false,
	}, {
		in:         "*",
		name:       "too_wide",
		wantErrMsg: rules.ErrTooWideRule.Error(),
		wantNil:    true,
	}, {
		in:   "||example.test^$unknown",
		name: "unknown_modifier",
		wantErrMsg: rules.ErrUnsupportedRule.Error() +
			": unknown filter modifier: unknown=",
		wantNil: true,
	}, {
		in:         "#@#.banner",
		name:       "generic_cosmetic_allowlist",
		wantErrMsg: `generic allowlist cosmetic rule is not allowed: "#@#.banner"`,
		wantNil:    true,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := rules.NewRule(tc.in, testFilterListID)
			testutil.AssertErrorMsg(t, tc.wantErrMsg, err)

			if tc.wantNil {
				assert.Nil(t, r)
			} else {
				assert.NotNil(t, r)
				assert.Equal(t, testFilterListID, r.GetFilterListID())
				assert.Equal(t, tc.in, r.Text())
			}
		})
	}
}

func TestIsComment(t *testing.T) {
	t.Parallel()

	assert.True(t, rules.IsComment("! comment"))
	assert.True(t, rules.IsComment("[Adblock Plus 2.0]"))
	assert.True(t, rules.IsComment("# hosts-style comment"))
	assert.False(t, rules.IsComment("##banner"))
	assert.False(t, rules.IsComment("#@$#body { color: red; }"))
	assert.False(t, rules.IsComment("||example.org^"))
	assert.False(t, rules.IsComment(""))
}

func FuzzNewRule(f *testing.F) {
	for _, seed := range []string{
		"",
		" ",
		"\n",
		"!",
		"#",
		"# comment",
		"##banner",
		"example.org#@#.banner",
		"||example.org^",
		"/regex/",
		"/",
		"@@||example.org^$third-party",
		"||example.org^$redirect=noopjs",
		"||example.org^$domain=~example.com|example.*",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, in string) {
		assert.NotPanics(t, func() {
			_, _ = rules.NewRule(in, testFilterListID)
		})
	})
}
