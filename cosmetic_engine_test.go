package urlfilter_test

import (
	"encoding/json"
	"testing"

	"github.com/SukkaW/tsurlfilter-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCosmeticRules are the common rules of the cosmetic engine tests.
const testCosmeticRules = `##banner_generic
##banner_generic_disabled
example.org##banner_specific
example.org#@#banner_generic_disabled
~example.org##banner_not_on_example_org
example.*##banner_wildcard
example.org,sub.example.org#?#div:has(> .ad)
#?#div:contains(ad)
example.org#$#body { padding: 0; }
#%#//scriptlet('abort-on-property-read', 'ads')
example.org#%#window.ads = false;
sub.example.org#@%#window.ads = false;`

func TestCosmeticEngine_Match(t *testing.T) {
	t.Parallel()

	engine := urlfilter.NewCosmeticEngine(newTestStorage(t, testCosmeticRules))
	assert.Equal(t, 12, engine.RulesCount())

	testCases := []struct {
		want           *urlfilter.CosmeticResult
		name           string
		hostname       string
		includeCSS     bool
		includeJS      bool
		includeGeneric bool
	}{{
		want: &urlfilter.CosmeticResult{
			ElementHiding: urlfilter.StylesResult{
				Generic:        []string{"banner_generic"},
				Specific:       []string{"banner_specific", "banner_wildcard"},
				GenericExtCSS:  []string{"div:contains(ad)"},
				SpecificExtCSS: []string{"div:has(> .ad)"},
			},
			CSS: urlfilter.StylesResult{
				Specific: []string{"body { padding: 0; }"},
			},
			JS: urlfilter.ScriptsResult{
				Generic:  []string{"//scriptlet('abort-on-property-read', 'ads')"},
				Specific: []string{"window.ads = false;"},
			},
		},
		name:           "all",
		hostname:       "example.org",
		includeCSS:     true,
		includeJS:      true,
		includeGeneric: true,
	}, {
		want: &urlfilter.CosmeticResult{
			ElementHiding: urlfilter.StylesResult{
				Generic: []string{
					"banner_generic",
					"banner_generic_disabled",
					"banner_not_on_example_org",
				},
				Specific:      []string{"banner_wildcard"},
				GenericExtCSS: []string{"div:contains(ad)"},
			},
			JS: urlfilter.ScriptsResult{
				Generic: []string{"//scriptlet('abort-on-property-read', 'ads')"},
			},
		},
		name:           "no_disabled",
		hostname:       "example.com",
		includeCSS:     true,
		includeJS:      true,
		includeGeneric: true,
	}, {
		want: &urlfilter.CosmeticResult{
			ElementHiding: urlfilter.StylesResult{
				Specific:       []string{"banner_specific", "banner_wildcard"},
				SpecificExtCSS: []string{"div:has(> .ad)"},
			},
			CSS: urlfilter.StylesResult{
				Specific: []string{"body { padding: 0; }"},
			},
			JS: urlfilter.ScriptsResult{
				Specific: []string{"window.ads = false;"},
			},
		},
		name:           "no_generic",
		hostname:       "example.org",
		includeCSS:     true,
		includeJS:      true,
		includeGeneric: false,
	}, {
		want: &urlfilter.CosmeticResult{
			JS: urlfilter.ScriptsResult{
				Generic:  []string{"//scriptlet('abort-on-property-read', 'ads')"},
				Specific: []string{"window.ads = false;"},
			},
		},
		name:           "no_css",
		hostname:       "example.org",
		includeCSS:     false,
		includeJS:      true,
		includeGeneric: true,
	}, {
		want: &urlfilter.CosmeticResult{
			ElementHiding: urlfilter.StylesResult{
				Specific:       []string{"banner_specific", "banner_wildcard"},
				SpecificExtCSS: []string{"div:has(> .ad)"},
			},
			CSS: urlfilter.StylesResult{
				Specific: []string{"body { padding: 0; }"},
			},
		},
		name:           "subdomain_allowlisted_js",
		hostname:       "sub.example.org",
		includeCSS:     true,
		includeJS:      true,
		includeGeneric: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res := engine.Match(tc.hostname, tc.includeCSS, tc.includeJS, tc.includeGeneric)
			require.NotNil(t, res)

			assert.Equal(t, tc.want, res)

			data, err := json.MarshalIndent(res, "", "\t")
			require.NoError(t, err)

			t.Logf("%s", data)
		})
	}
}
