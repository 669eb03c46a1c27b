// Package urlfilter contains implementation of AdGuard content blocking
// engines: the network engine matching web requests and the cosmetic engine
// matching pages.
package urlfilter

import (
	"context"
	"fmt"

	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// Engine represents the filtering engine with all the loaded rules.
type Engine struct {
	networkEngine  *NetworkEngine
	cosmeticEngine *CosmeticEngine
}

// NewEngine parses the filtering rules and creates a filtering engine of them
// with the default configuration.
func NewEngine(s *filterlist.RuleStorage) (e *Engine) {
	return &Engine{
		networkEngine:  NewNetworkEngine(s),
		cosmeticEngine: NewCosmeticEngine(s),
	}
}

// NewEngineWithConfig creates a filtering engine of the rules of s.  c must
// be valid.
func NewEngineWithConfig(s *filterlist.RuleStorage, c *NetworkEngineConfig) (e *Engine, err error) {
	ne, err := NewNetworkEngineWithConfig(s, c)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	ce := NewCosmeticEngine(s)
	c.Metrics.SetTableRulesCount(context.Background(), TableNameCosmetic, ce.RulesCount())

	return &Engine{
		networkEngine:  ne,
		cosmeticEngine: ce,
	}, nil
}

// NetworkEngine returns the network engine of e.
func (e *Engine) NetworkEngine() (ne *NetworkEngine) {
	return e.networkEngine
}

// CosmeticEngine returns the cosmetic engine of e.
func (e *Engine) CosmeticEngine() (ce *CosmeticEngine) {
	return e.cosmeticEngine
}

// MatchRequest matches the specified request against the filtering engine and
// returns the matching result.  The source URL, if any, is matched as a
// document to find the document-level rules.
func (e *Engine) MatchRequest(r *rules.Request) (res *rules.MatchingResult) {
	networkRules := e.networkEngine.MatchAll(r)

	var sourceRules []*rules.NetworkRule
	if r.SourceURL != "" {
		sourceRequest := rules.NewRequest(r.SourceURL, "", rules.TypeDocument)
		sourceRules = e.networkEngine.MatchAll(sourceRequest)
	}

	return rules.NewMatchingResult(networkRules, sourceRules)
}

// GetCosmeticResult gets cosmetic result for the specified hostname and
// cosmetic options.
func (e *Engine) GetCosmeticResult(hostname string, option rules.CosmeticOption) (res *CosmeticResult) {
	includeCSS := option&rules.CosmeticOptionCSS == rules.CosmeticOptionCSS
	includeGenericCSS := option&rules.CosmeticOptionGenericCSS == rules.CosmeticOptionGenericCSS
	includeJS := option&rules.CosmeticOptionJS == rules.CosmeticOptionJS

	return e.cosmeticEngine.Match(hostname, includeCSS, includeJS, includeGenericCSS)
}

// RulesCount returns the number of network and cosmetic rules in the engine.
func (e *Engine) RulesCount() (n int) {
	return e.networkEngine.RulesCount() + e.cosmeticEngine.RulesCount()
}
