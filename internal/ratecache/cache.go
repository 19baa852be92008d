// Package ratecache holds the most recent aggregated funding view behind a
// single atomic pointer, using the same lock-free read path as
// internal/bot/spread.go (atomic.Value-backed PriceTracker), narrowed from
// a sharded per-pair map to one atomic reference.
package ratecache

import (
	"context"
	"sync/atomic"
	"time"

	"hldesk/internal/models"
	"hldesk/internal/observability"
)

// Aggregator is the subset of aggregator.Aggregator the cache depends on,
// kept as an interface so tests can substitute a stub.
type Aggregator interface {
	Aggregate(ctx context.Context) models.AggregatedResult
}

type entry struct {
	result     models.AggregatedResult
	insertedAt time.Time
}

// Cache exposes lock-free reads against a single atomic reference; writers
// perform an atomic swap. Once Get returns a result, callers within the TTL
// observe identical data.
type Cache struct {
	ref     atomic.Pointer[entry]
	agg     Aggregator
	ttl     time.Duration
}

func New(agg Aggregator, ttl time.Duration) *Cache {
	return &Cache{agg: agg, ttl: ttl}
}

// Get returns the cached aggregate if its age is within the TTL; otherwise
// it recomputes via the aggregator and stores the fresh result.
func (c *Cache) Get(ctx context.Context) models.AggregatedResult {
	if e := c.ref.Load(); e != nil && time.Since(e.insertedAt) <= c.ttl {
		return e.result
	}
	result := c.agg.Aggregate(ctx)
	c.Update(result)
	return result
}

// Update unconditionally swaps in a freshly computed result, used by the
// poll loop after its own aggregation call so Get's TTL recompute never
// races the loop's own write.
func (c *Cache) Update(result models.AggregatedResult) {
	c.ref.Store(&entry{result: result, insertedAt: time.Now()})
	observability.AssetsTracked.Set(float64(len(result.Spreads)))
}

func (c *Cache) AgeMs() int64 {
	e := c.ref.Load()
	if e == nil {
		return -1
	}
	return time.Since(e.insertedAt).Milliseconds()
}

func (c *Cache) LastFetchMs() int64 {
	e := c.ref.Load()
	if e == nil {
		return 0
	}
	return e.result.Timestamp
}

func (c *Cache) AssetCount() int {
	e := c.ref.Load()
	if e == nil {
		return 0
	}
	return len(e.result.Spreads)
}
