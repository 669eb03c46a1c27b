// Package lrucache contains a generic LRU cache used to keep recently
// materialized rules in memory.
package lrucache

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bluele/gcache"
)

// Interface is the cache interface.
type Interface[K, T any] interface {
	// Set sets key and val as cache pair.
	Set(key K, val T)

	// Get gets val from the cache using key.
	Get(key K) (val T, ok bool)

	// Clear completely clears cache.
	Clear()

	// Len returns the number of items in the cache.
	Len() (n int)
}

// Config is a configuration structure of a cache.
type Config struct {
	// Size is the maximum number of items in the cache.  It must be positive.
	Size int
}

// LRU is an [Interface] implementation backed by gcache.
type LRU[K, T any] struct {
	cache gcache.Cache
}

// New returns a new initialized LRU cache.  conf must not be nil.
func New[K, T any](conf *Config) (c *LRU[K, T]) {
	return &LRU[K, T]{
		cache: gcache.New(conf.Size).LRU().Build(),
	}
}

// type check
var _ Interface[any, any] = (*LRU[any, any])(nil)

// Set implements the [Interface] interface for *LRU.
func (c *LRU[K, T]) Set(key K, val T) {
	err := c.cache.Set(key, val)
	if err != nil {
		// Shouldn't happen, since there is no serialization function.
		panic(fmt.Errorf("lrucache: setting cache item: %w", err))
	}
}

// Get implements the [Interface] interface for *LRU.
func (c *LRU[K, T]) Get(key K) (val T, ok bool) {
	v, err := c.cache.Get(key)
	if err != nil {
		if !errors.Is(err, gcache.KeyNotFoundError) {
			// Shouldn't happen, since there is no loader function.
			panic(fmt.Errorf("lrucache: getting cache item: %w", err))
		}

		return val, false
	}

	// T may be an interface type.
	if v == nil {
		return val, true
	}

	return v.(T), true
}

// Clear implements the [Interface] interface for *LRU.
func (c *LRU[K, T]) Clear() {
	c.cache.Purge()
}

// Len implements the [Interface] interface for *LRU.
func (c *LRU[K, T]) Len() (n int) {
	return c.cache.Len(false)
}

// Empty is an [Interface] implementation that stores nothing.
type Empty[K, T any] struct{}

// type check
var _ Interface[any, any] = Empty[any, any]{}

// Set implements the [Interface] interface for Empty.
func (Empty[K, T]) Set(_ K, _ T) {}

// Get implements the [Interface] interface for Empty.
func (Empty[K, T]) Get(_ K) (val T, ok bool) { return val, false }

// Clear implements the [Interface] interface for Empty.
func (Empty[K, T]) Clear() {}

// Len implements the [Interface] interface for Empty.
func (Empty[K, T]) Len() (n int) { return 0 }
