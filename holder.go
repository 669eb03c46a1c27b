package urlfilter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
)

// HolderConfig is the configuration structure for a [Holder].
type HolderConfig struct {
	// Logger is used to log the reloads.  It must not be nil.
	Logger *slog.Logger

	// Metrics is used for the collection of the engine statistics.  It must
	// not be nil.
	Metrics Metrics

	// StorageMetrics is used for the collection of the rule storage
	// statistics.  It must not be nil.
	StorageMetrics filterlist.Metrics

	// Engine is the configuration of the network engines.  It must be valid.
	Engine *NetworkEngineConfig

	// CacheSize is the rule cache size of the rule storages.  It must not be
	// negative.
	CacheSize int
}

// type check
var _ validate.Interface = (*HolderConfig)(nil)

// Validate implements the [validate.Interface] interface for *HolderConfig.
func (c *HolderConfig) Validate() (err error) {
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

	if c.StorageMetrics == nil {
		errs = append(errs, fmt.Errorf("StorageMetrics: %w", errors.ErrNoValue))
	}

	errs = validate.Append(errs, "Engine", c.Engine)

	return errors.Join(errs...)
}

// Holder keeps the current filtering engine and replaces it with a new one on
// reloads.  The new engine is built aside, so matching through the holder
// never uses a partially built index.  It is safe for concurrent use.
type Holder struct {
	logger         *slog.Logger
	metrics        Metrics
	storageMetrics filterlist.Metrics
	engineConf     *NetworkEngineConfig

	// reloadMu serializes the reloads so that the last started one wins.
	reloadMu *sync.Mutex

	engine    *atomic.Pointer[Engine]
	cacheSize int
}

// NewHolder returns a new *Holder with an empty engine.  c must be valid.
func NewHolder(c *HolderConfig) (h *Holder, err error) {
	err = c.Validate()
	if err != nil {
		return nil, fmt.Errorf("holder configuration: %w", err)
	}

	h = &Holder{
		logger:         c.Logger,
		metrics:        c.Metrics,
		storageMetrics: c.StorageMetrics,
		engineConf:     c.Engine,
		reloadMu:       &sync.Mutex{},
		engine:         &atomic.Pointer[Engine]{},
		cacheSize:      c.CacheSize,
	}

	e, err := h.build(nil)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return nil, err
	}

	h.engine.Store(e)

	return h, nil
}

// Engine returns the current engine.  It is never nil.
func (h *Holder) Engine() (e *Engine) {
	return h.engine.Load()
}

// MatchRequest matches r using the current engine.
func (h *Holder) MatchRequest(r *rules.Request) (res *rules.MatchingResult) {
	return h.Engine().MatchRequest(r)
}

// Reload builds a new engine from lists and installs it.  The previous engine
// keeps serving the requests until the new one is ready.  The lists of the
// previous engine are not closed, it's the caller's responsibility.  If ctx is
// canceled before the new engine is ready, it is discarded.
func (h *Holder) Reload(ctx context.Context, lists []filterlist.RuleList) (err error) {
	defer func() { h.metrics.HandleReload(ctx, err) }()

	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	e, err := h.build(lists)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return err
	}

	if err = ctx.Err(); err != nil {
		return fmt.Errorf("reloading engine: %w", err)
	}

	h.engine.Store(e)

	h.logger.InfoContext(ctx, "engine reloaded", "lists", len(lists), "rules", e.RulesCount())

	return nil
}

// build creates a new engine from lists.
func (h *Holder) build(lists []filterlist.RuleList) (e *Engine, err error) {
	s, err := filterlist.NewRuleStorageWithConfig(&filterlist.StorageConfig{
		Logger:    h.logger,
		Metrics:   h.storageMetrics,
		Lists:     lists,
		CacheSize: h.cacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rule storage: %w", err)
	}

	return NewEngineWithConfig(s, h.engineConf)
}
