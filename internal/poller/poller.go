// Package poller drives the fixed-interval aggregate → cache → dispatch
// cycle, in the style of internal/bot/engine.go's ticker/select
// loop (balanceTicker/statsTicker pattern) generalized to one ticker with
// a non-blocking running-flag guard so a slow cycle coalesces ticks
// instead of piling up concurrent runs.
package poller

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"hldesk/internal/aggregator"
	"hldesk/internal/models"
	"hldesk/internal/observability"
	"hldesk/internal/paper"
	"hldesk/internal/ratecache"
)

type Dispatcher interface {
	Save(rates []models.FundingRate)
}

// Poller runs one aggregate+cache+dispatch cycle on a fixed interval.
type Poller struct {
	aggregator  *aggregator.Aggregator
	cache       *ratecache.Cache
	dispatcher  Dispatcher
	paperEngine *paper.Engine
	interval    time.Duration
	logger      *zap.Logger

	running atomic.Bool
	tick    atomic.Int64
}

func New(agg *aggregator.Aggregator, cache *ratecache.Cache, dispatcher Dispatcher, paperEngine *paper.Engine, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{aggregator: agg, cache: cache, dispatcher: dispatcher, paperEngine: paperEngine, interval: interval, logger: logger}
}

// SampleHook is run every sampleEveryNCycles poll cycles (typically the
// hourly sampler), so it rides this driver without its own timer.
type SampleHook func(models.AggregatedResult)

// Run blocks until ctx is cancelled, firing one cycle per tick. Ticks that
// land while the previous cycle is still running are skipped, not queued.
func (p *Poller) Run(ctx context.Context, onSample SampleHook, sampleEveryNCycles int) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.maybeRunCycle(ctx, onSample, sampleEveryNCycles)
		}
	}
}

func (p *Poller) maybeRunCycle(ctx context.Context, onSample SampleHook, sampleEveryNCycles int) {
	if !p.running.CompareAndSwap(false, true) {
		observability.PollCyclesSkipped.Inc()
		p.logger.Warn("poller: previous cycle still running, skipping tick")
		return
	}
	defer p.running.Store(false)

	start := time.Now()
	defer func() {
		observability.PollCycleDuration.Observe(float64(time.Since(start).Milliseconds()))
	}()

	result := p.aggregator.Aggregate(ctx)
	p.cache.Update(result)

	go p.dispatcher.Save(result.AllRates)

	if p.paperEngine != nil {
		go p.paperEngine.RunCycle(result)
	}

	if onSample != nil && sampleEveryNCycles > 0 {
		n := p.tick.Add(1)
		if n%int64(sampleEveryNCycles) == 0 {
			onSample(result)
		}
	}
}
