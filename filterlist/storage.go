package filterlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/SukkaW/tsurlfilter-sub001/internal/lrucache"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// DefaultCacheSize is the default maximum number of materialized rules kept by
// a [RuleStorage].
const DefaultCacheSize = 50_000

// StorageConfig is the configuration structure for a [RuleStorage].
type StorageConfig struct {
	// Logger is used to log the retrieval errors.  It must not be nil.
	Logger *slog.Logger

	// Metrics is used for the collection of the storage statistics.  It must
	// not be nil.
	Metrics Metrics

	// Lists are the rule lists of the storage.  Their identifiers must be
	// unique and in the [0, MaxListID) range.
	Lists []RuleList

	// CacheSize is the maximum number of materialized rules to keep.  Zero
	// disables the cache.  It must not be negative.
	CacheSize int
}

// type check
var _ validate.Interface = (*StorageConfig)(nil)

// Validate implements the [validate.Interface] interface for *StorageConfig.
func (c *StorageConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotNil("Logger", c.Logger),
		validate.NotNegative("CacheSize", c.CacheSize),
	}

	if c.Metrics == nil {
		errs = append(errs, fmt.Errorf("Metrics: %w", errors.ErrNoValue))
	}

	seen := make(map[int]struct{}, len(c.Lists))
	for i, l := range c.Lists {
		id := l.GetID()
		if err = validateListID(id); err != nil {
			errs = append(errs, fmt.Errorf("list at index %d: %w", i, err))

			continue
		}

		if _, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("list at index %d: %w: %d", i, ErrDuplicateListID, id))
		}

		seen[id] = struct{}{}
	}

	return errors.Join(errs...)
}

// RuleStorage is an abstraction that combines several rule lists.  It can be
// scanned using a [RuleStorageScanner], and it allows retrieving rules by
// their indexes.
//
// The idea is to keep rules in a serialized format, even the original one in
// the case of [FileRuleList], and create them in a lazy manner only when they
// are really needed.  When the filtering engine is being initialized, the
// rule lists are scanned once in order to fill up the lookup tables, which
// keep [RuleIdx] values only.
type RuleStorage struct {
	logger  *slog.Logger
	metrics Metrics

	// cache contains the rules which were retrieved.
	cache lrucache.Interface[RuleIdx, rules.Rule]

	// listsMap is a map with rule lists by their identifiers.
	listsMap map[int]RuleList

	// lists are the rule lists in the scanning order.
	lists []RuleList
}

// NewRuleStorage creates a new instance of the RuleStorage with the default
// cache size and validates the lists.
func NewRuleStorage(lists []RuleList) (s *RuleStorage, err error) {
	return NewRuleStorageWithConfig(&StorageConfig{
		Logger:    slogutil.NewDiscardLogger(),
		Metrics:   EmptyMetrics{},
		Lists:     lists,
		CacheSize: DefaultCacheSize,
	})
}

// NewRuleStorageWithConfig creates a new instance of the RuleStorage.  c must
// be valid.
func NewRuleStorageWithConfig(c *StorageConfig) (s *RuleStorage, err error) {
	err = c.Validate()
	if err != nil {
		return nil, fmt.Errorf("rule storage configuration: %w", err)
	}

	var cache lrucache.Interface[RuleIdx, rules.Rule] = lrucache.Empty[RuleIdx, rules.Rule]{}
	if c.CacheSize > 0 {
		cache = lrucache.New[RuleIdx, rules.Rule](&lrucache.Config{
			Size: c.CacheSize,
		})
	}

	listsMap := make(map[int]RuleList, len(c.Lists))
	for _, l := range c.Lists {
		listsMap[l.GetID()] = l
	}

	return &RuleStorage{
		logger:   c.Logger,
		metrics:  c.Metrics,
		cache:    cache,
		listsMap: listsMap,
		lists:    c.Lists,
	}, nil
}

// NewRuleStorageScanner creates a new instance of RuleStorageScanner.  It can
// be used to read and parse all the storage contents.
func (s *RuleStorage) NewRuleStorageScanner() (sc *RuleStorageScanner) {
	scanners := make([]*RuleScanner, 0, len(s.lists))
	for _, l := range s.lists {
		scanners = append(scanners, l.NewScanner())
	}

	return &RuleStorageScanner{
		Scanners: scanners,
	}
}

// RetrieveRule looks for the filtering rule in this storage.  idx is the
// lookup index that can be received from the rule storage scanner.
func (s *RuleStorage) RetrieveRule(idx RuleIdx) (r rules.Rule, err error) {
	r, ok := s.cache.Get(idx)
	s.metrics.IncrementLookups(ok)
	if ok {
		return r, nil
	}

	l, ok := s.listsMap[idx.ListID]
	if !ok {
		return nil, fmt.Errorf("%w: list %d does not exist", ErrRuleRetrieval, idx.ListID)
	}

	r, err = l.RetrieveRule(idx.Position)
	if err != nil {
		return nil, fmt.Errorf("list %d: %w", idx.ListID, err)
	}

	s.cache.Set(idx, r)

	return r, nil
}

// RetrieveNetworkRule is a helper method that retrieves a network rule from the
// storage.  It returns nil if the rule cannot be found or is not a network
// rule.
func (s *RuleStorage) RetrieveNetworkRule(idx RuleIdx) (nr *rules.NetworkRule) {
	r := s.retrieve(idx)
	nr, _ = r.(*rules.NetworkRule)

	return nr
}

// RetrieveCosmeticRule is a helper method that retrieves a cosmetic rule from
// the storage.  It returns nil if the rule cannot be found or is not a
// cosmetic rule.
func (s *RuleStorage) RetrieveCosmeticRule(idx RuleIdx) (cr *rules.CosmeticRule) {
	r := s.retrieve(idx)
	cr, _ = r.(*rules.CosmeticRule)

	return cr
}

// retrieve returns the rule by idx, logging the error if there is one.
func (s *RuleStorage) retrieve(idx RuleIdx) (r rules.Rule) {
	r, err := s.RetrieveRule(idx)
	if err != nil {
		s.metrics.IncrementRetrievalErrors()
		s.logger.Log(
			context.Background(),
			slog.LevelDebug,
			"retrieving rule",
			"idx", idx,
			slogutil.KeyError, err,
		)

		return nil
	}

	return r
}

// CacheSize returns the number of materialized rules in the cache.
func (s *RuleStorage) CacheSize() (n int) {
	return s.cache.Len()
}

// Close closes the storage instance.
func (s *RuleStorage) Close() (err error) {
	var errs []error
	for _, l := range s.lists {
		err = l.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("list %d: %w", l.GetID(), err))
		}
	}

	return errors.Annotate(errors.Join(errs...), "closing rule lists: %w")
}
