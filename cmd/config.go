package main

import (
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/SukkaW/tsurlfilter-sub001"
	"github.com/SukkaW/tsurlfilter-sub001/declarative"
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/internal/metrics"
	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v2"
)

// configuration represents the optional on-disk configuration.
type configuration struct {
	// Engine is the filtering engine configuration.
	Engine *engineConfig `yaml:"engine"`

	// Converter is the declarative converter configuration.
	Converter *converterConfig `yaml:"converter"`

	// MetricsNamespace is the namespace of the Prometheus metrics.
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// engineConfig is the filtering engine configuration.
type engineConfig struct {
	// Strategy is the shortcut lookup strategy, "hash" or "trie".
	Strategy string `yaml:"strategy"`

	// ShortcutLength is the length of the shortcuts of the "hash" strategy.
	ShortcutLength int `yaml:"shortcut_length"`

	// TrieMinLength is the minimum shortcut length of the "trie" strategy.
	TrieMinLength int `yaml:"trie_min_length"`

	// CacheSize is the size of the rule cache.
	CacheSize int `yaml:"cache_size"`
}

// converterConfig is the declarative converter configuration.
type converterConfig struct {
	// ResourcesPath is the path prefix of the redirect resources.
	ResourcesPath string `yaml:"resources_path"`

	// MaxRules is the maximum number of declarative rules in a rule-set.
	MaxRules int `yaml:"max_rules"`

	// MaxRegexpRules is the maximum number of regexp declarative rules in a
	// rule-set.
	MaxRegexpRules int `yaml:"max_regexp_rules"`

	// Concurrency is the number of filters converted at once.
	Concurrency int `yaml:"concurrency"`

	// MaxFilterSize is the maximum size of a filter file.
	MaxFilterSize datasize.ByteSize `yaml:"max_filter_size"`
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() (c *configuration) {
	return &configuration{
		Engine: &engineConfig{
			Strategy:       urlfilter.StrategyHash.String(),
			ShortcutLength: urlfilter.DefaultNetworkEngineConfig().ShortcutLength,
			TrieMinLength:  urlfilter.DefaultNetworkEngineConfig().TrieMinLength,
			CacheSize:      filterlist.DefaultCacheSize,
		},
		Converter: &converterConfig{
			ResourcesPath:  "/web_accessible_resources",
			MaxRules:       declarative.DefaultMaxRules,
			MaxRegexpRules: declarative.DefaultMaxRegexpRules,
			Concurrency:    1,
			MaxFilterSize:  64 * datasize.MB,
		},
		MetricsNamespace: metrics.Namespace,
	}
}

// parseConfig reads the configuration file at confPath.  If confPath is
// empty, it returns the default configuration.
func parseConfig(confPath string) (c *configuration, err error) {
	c = defaultConfig()
	if confPath == "" {
		return c, nil
	}

	// #nosec G304 -- Trust the path to the configuration file that is given
	// from the environment.
	yamlFile, err := os.ReadFile(confPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	err = yaml.Unmarshal(yamlFile, c)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return c, nil
}

// type check
var _ validate.Interface = (*configuration)(nil)

// Validate implements the [validate.Interface] interface for *configuration.
func (c *configuration) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotEmpty("metrics_namespace", c.MetricsNamespace),
	}

	errs = validate.Append(errs, "engine", c.Engine)
	errs = validate.Append(errs, "converter", c.Converter)

	return errors.Join(errs...)
}

// type check
var _ validate.Interface = (*engineConfig)(nil)

// Validate implements the [validate.Interface] interface for *engineConfig.
func (c *engineConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	_, err = c.toInternal(nil)

	return err
}

// toInternal returns the network engine configuration.  The metrics are
// replaced with [urlfilter.EmptyMetrics] if m is nil.
func (c *engineConfig) toInternal(m urlfilter.Metrics) (conf *urlfilter.NetworkEngineConfig, err error) {
	strategy, err := parseStrategy(c.Strategy)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}

	if m == nil {
		m = urlfilter.EmptyMetrics{}
	}

	conf = urlfilter.DefaultNetworkEngineConfig()
	conf.Metrics = m
	conf.Strategy = strategy
	conf.ShortcutLength = c.ShortcutLength
	conf.TrieMinLength = c.TrieMinLength

	return conf, errors.Join(
		conf.Validate(),
		validate.NotNegative("cache_size", c.CacheSize),
	)
}

// parseStrategy returns the shortcut strategy with the name.
func parseStrategy(name string) (s urlfilter.ShortcutStrategy, err error) {
	for _, s = range []urlfilter.ShortcutStrategy{
		urlfilter.StrategyHash,
		urlfilter.StrategyTrie,
	} {
		if s.String() == name {
			return s, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", errors.ErrBadEnumValue, name)
}

// type check
var _ validate.Interface = (*converterConfig)(nil)

// Validate implements the [validate.Interface] interface for
// *converterConfig.
func (c *converterConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	return errors.Join(
		validate.Positive("max_rules", c.MaxRules),
		validate.NotNegative("max_regexp_rules", c.MaxRegexpRules),
		validate.Positive("concurrency", c.Concurrency),
	)
}
