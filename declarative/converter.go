package declarative

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/container"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxRules is the default maximum number of declarative rules in
	// a rule-set.
	DefaultMaxRules = 30_000

	// DefaultMaxRegexpRules is the default maximum number of regexp
	// declarative rules in a rule-set.
	DefaultMaxRegexpRules = 1_000
)

// ConverterConfig is the configuration structure for a [Converter].
type ConverterConfig struct {
	// Logger is used to log the conversion.  It must not be nil.
	Logger *slog.Logger

	// Metrics is used for the collection of the conversion statistics.  It
	// must not be nil.
	Metrics Metrics

	// ResourcesPath is the path prefix of the redirect resources.
	ResourcesPath string

	// MaxRules is the maximum number of declarative rules in a rule-set.  It
	// must be positive.
	MaxRules int

	// MaxRegexpRules is the maximum number of regexp declarative rules in a
	// rule-set.  It must not be negative.
	MaxRegexpRules int

	// Concurrency is the maximum number of filters converted at once.  It
	// must be positive.
	Concurrency int
}

// type check
var _ validate.Interface = (*ConverterConfig)(nil)

// Validate implements the [validate.Interface] interface for
// *ConverterConfig.
func (c *ConverterConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotNil("Logger", c.Logger),
		validate.Positive("MaxRules", c.MaxRules),
		validate.NotNegative("MaxRegexpRules", c.MaxRegexpRules),
		validate.Positive("Concurrency", c.Concurrency),
	}

	if c.Metrics == nil {
		errs = append(errs, fmt.Errorf("Metrics: %w", errors.ErrNoValue))
	}

	return errors.Join(errs...)
}

// Converter converts filters into declarative rule-sets.
type Converter struct {
	logger         *slog.Logger
	metrics        Metrics
	resourcesPath  string
	maxRules       int
	maxRegexpRules int
	concurrency    int
}

// NewConverter returns a new properly initialized *Converter.  c must not be
// nil.
func NewConverter(c *ConverterConfig) (conv *Converter, err error) {
	err = c.Validate()
	if err != nil {
		return nil, fmt.Errorf("converter config: %w", err)
	}

	return &Converter{
		logger:         c.Logger,
		metrics:        c.Metrics,
		resourcesPath:  c.ResourcesPath,
		maxRules:       c.MaxRules,
		maxRegexpRules: c.MaxRegexpRules,
		concurrency:    c.Concurrency,
	}, nil
}

// Convert converts filters into a rule-set with the identifier id.  The
// identifiers of the filters must be unique and in the [0,
// filterlist.MaxListID) range.  The per-rule failures are recorded in the
// rule-set, err is only returned if a filter could not be read or ctx is
// canceled.
func (c *Converter) Convert(
	ctx context.Context,
	id string,
	filters []*Filter,
) (rs *RuleSet, err error) {
	err = validateFilters(filters)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	budget := NewBudget(c.maxRules, c.maxRegexpRules)
	results := make([]*filterResult, len(filters))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, f := range filters {
		g.Go(func() (convErr error) {
			results[i], convErr = c.convertFilter(gCtx, f, budget)

			return convErr
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, fmt.Errorf("converting rule-set %q: %w", id, err)
	}

	rs = merge(id, filters, results)

	c.logger.DebugContext(
		ctx,
		"converted rule-set",
		"id", id,
		"filters", len(filters),
		"rules", rs.Counters.Total,
		"regexp", rs.Counters.Regexp,
		"limitations", len(rs.Limitations),
		"errors", len(rs.Errors),
		"elapsed", time.Since(start),
	)

	return rs, nil
}

// validateFilters returns an error if the filters cannot be converted
// together.
func validateFilters(filters []*Filter) (err error) {
	var errs []error
	seen := container.NewMapSet[int]()
	for i, f := range filters {
		switch {
		case f == nil || f.Content == nil:
			errs = append(errs, fmt.Errorf("filter at index %d: %w", i, errors.ErrNoValue))

			continue
		case f.ID < 0 || f.ID >= filterlist.MaxListID:
			errs = append(errs, fmt.Errorf(
				"filter at index %d: %w: %d",
				i,
				filterlist.ErrListIDOutOfRange,
				f.ID,
			))
		case seen.Has(f.ID):
			errs = append(errs, fmt.Errorf(
				"filter at index %d: %w: %d",
				i,
				filterlist.ErrDuplicateListID,
				f.ID,
			))
		}

		seen.Add(f.ID)
	}

	return errors.Join(errs...)
}

// convertedRule is a declarative rule with its source before the identifiers
// are assigned.
type convertedRule struct {
	rule   *Rule
	source Source
}

// filterResult is the result of the conversion of a single filter.
type filterResult struct {
	rules       []convertedRule
	excluded    []Source
	errors      []*ConversionError
	limitations []*Limitation
}

// parsedRule is a network rule with its line.
type parsedRule struct {
	rule *rules.NetworkRule
	line int
}

// convertFilter converts a single filter reserving the declarative rules in
// budget.
func (c *Converter) convertFilter(
	ctx context.Context,
	f *Filter,
	budget *Budget,
) (res *filterResult, err error) {
	start := time.Now()

	lines, err := f.Content.Lines(ctx)
	if err != nil {
		return nil, fmt.Errorf("filter %d: %w", f.ID, err)
	}

	res = &filterResult{}
	l := c.logger.With("filter_id", f.ID)

	var parsed []parsedRule
	total := 0
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || rules.IsComment(line) {
			continue
		}

		total++
		src := Source{FilterID: f.ID, Line: i}

		if budget.Exhausted() {
			res.addLimitation(src, line, ErrBudgetExhausted)

			continue
		}

		pr, ok := res.parse(ctx, l, src, line)
		if ok {
			parsed = append(parsed, pr)
		}
	}

	converted := 0
	for _, pr := range c.applyBadfilter(res, f.ID, parsed) {
		if c.emit(res, f.ID, pr, budget) {
			converted++
		}
	}

	slices.SortStableFunc(res.limitations, func(a, b *Limitation) (n int) {
		return cmp.Compare(a.Source.Line, b.Source.Line)
	})

	c.metrics.HandleFilterConversion(ctx, &FilterMetrics{
		Duration:    time.Since(start),
		Converted:   converted,
		Limitations: len(res.limitations),
		Errors:      len(res.errors),
		Excluded:    len(res.excluded),
	})

	l.DebugContext(
		ctx,
		"converted filter",
		"lines", total,
		"converted", converted,
		"limitations", len(res.limitations),
		"errors", len(res.errors),
	)

	return res, ctx.Err()
}

// parse parses a single text rule.  ok is false if the rule is recorded as a
// limitation or an error.
func (res *filterResult) parse(
	ctx context.Context,
	l *slog.Logger,
	src Source,
	text string,
) (pr parsedRule, ok bool) {
	r, err := rules.NewRule(text, src.FilterID)
	if err != nil {
		if errors.Is(err, rules.ErrUnsupportedRule) {
			res.addLimitation(src, text, err)
		} else {
			l.DebugContext(ctx, "parsing rule", "line", src.Line, slogutil.KeyError, err)
			res.errors = append(res.errors, &ConversionError{
				Text:    text,
				Message: err.Error(),
				Source:  src,
			})
		}

		return pr, false
	}

	nr, ok := r.(*rules.NetworkRule)
	if !ok {
		res.addLimitation(src, text, ErrCosmeticRule)

		return pr, false
	}

	return parsedRule{rule: nr, line: src.Line}, true
}

// applyBadfilter records the $badfilter rules and the rules they disable in
// res and returns the remaining rules.
func (c *Converter) applyBadfilter(res *filterResult, filterID int, parsed []parsedRule) (rest []parsedRule) {
	badfilters := map[string][]*rules.NetworkRule{}
	for _, pr := range parsed {
		if pr.rule.IsOptionEnabled(rules.OptionBadfilter) {
			p := pr.rule.Pattern()
			badfilters[p] = append(badfilters[p], pr.rule)
		}
	}

	if len(badfilters) == 0 {
		return parsed
	}

	rest = parsed[:0]
	for _, pr := range parsed {
		src := Source{FilterID: filterID, Line: pr.line}
		switch {
		case pr.rule.IsOptionEnabled(rules.OptionBadfilter):
			res.addLimitation(src, pr.rule.Text(), ErrBadfilterApplied)
		case isNegated(badfilters[pr.rule.Pattern()], pr.rule):
			res.excluded = append(res.excluded, src)
			res.addLimitation(src, pr.rule.Text(), ErrExcluded)
		default:
			rest = append(rest, pr)
		}
	}

	return rest
}

// isNegated returns true if any of badfilters disables r.
func isNegated(badfilters []*rules.NetworkRule, r *rules.NetworkRule) (ok bool) {
	for _, b := range badfilters {
		if b.NegatesBadfilter(r) {
			return true
		}
	}

	return false
}

// emit converts the rule and reserves its declarative rules in budget.  ok
// is true if the rule has been converted.
func (c *Converter) emit(res *filterResult, filterID int, pr parsedRule, budget *Budget) (ok bool) {
	src := Source{FilterID: filterID, Line: pr.line}
	text := pr.rule.Text()

	err := checkSupported(pr.rule)
	if err != nil {
		res.addLimitation(src, text, err)

		return false
	}

	converted, err := convertRule(pr.rule, c.resourcesPath)
	if err != nil {
		res.addLimitation(src, text, err)

		return false
	}

	regexp := 0
	for _, r := range converted {
		if r.isRegexp() {
			regexp++
		}
	}

	err = budget.reserve(len(converted), regexp)
	if err != nil {
		res.addLimitation(src, text, err)

		return false
	}

	for _, r := range converted {
		res.rules = append(res.rules, convertedRule{rule: r, source: src})
	}

	return true
}

// addLimitation records the text rule at src as a limitation with the reason.
func (res *filterResult) addLimitation(src Source, text string, reason error) {
	res.limitations = append(res.limitations, &Limitation{
		Text:   text,
		Reason: reason.Error(),
		Source: src,
	})
}

// merge merges the results of the conversions of filters into a rule-set
// assigning the identifiers of the declarative rules in the order of the
// filters.
func merge(id string, filters []*Filter, results []*filterResult) (rs *RuleSet) {
	rs = &RuleSet{
		SourceMap: SourceMap{},
		ID:        id,
		FilterIDs: make([]int, 0, len(filters)),
	}

	for i, res := range results {
		rs.FilterIDs = append(rs.FilterIDs, filters[i].ID)
		rs.ExcludedSources = append(rs.ExcludedSources, res.excluded...)
		rs.Errors = append(rs.Errors, res.errors...)
		rs.Limitations = append(rs.Limitations, res.limitations...)

		for _, cr := range res.rules {
			ruleID := len(rs.Rules) + 1
			cr.rule.ID = ruleID
			rs.Rules = append(rs.Rules, cr.rule)
			rs.SourceMap[ruleID] = cr.source

			if cr.rule.isRegexp() {
				rs.Counters.Regexp++
			}
		}

		rs.Counters.Excluded += len(res.excluded)
	}

	rs.Counters.Total = len(rs.Rules)

	return rs
}
