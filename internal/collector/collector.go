package collector

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"SectorPulse/internal/model"
	"SectorPulse/internal/store"
)

// Collector fills a fresh Store with the history of every instrument.
type Collector struct {
	Fetcher Fetcher
	Days    int
	Workers int
	Logger  zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, days, workers int, log zerolog.Logger) *Collector {
	if workers <= 0 {
		workers = 5
	}
	return &Collector{Fetcher: fetcher, Days: days, Workers: workers, Logger: log}
}

// Result is the outcome of one collection pass.
type Result struct {
	Store  *store.Store
	Errors map[string]error
}

// Collect fetches all instruments concurrently. A failed instrument is
// logged and left out of the store; only cancellation aborts the pass.
func (c *Collector) Collect(ctx context.Context, universe []model.Instrument) (*Result, error) {
	res := &Result{Store: store.New(), Errors: make(map[string]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Workers)
	for _, inst := range universe {
		inst := inst
		g.Go(func() error {
			pts, err := c.Fetcher.FetchDailyBars(gctx, inst.ID, c.Days)
			if err == nil {
				err = res.Store.Put(model.Series{InstrumentID: inst.ID, Points: pts})
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.Logger.Error().Err(err).Str("instrument", inst.ID).Msg("collect failed")
				mu.Lock()
				res.Errors[inst.ID] = err
				mu.Unlock()
				return nil
			}
			c.Logger.Debug().Str("instrument", inst.ID).Int("bars", len(pts)).Msg("collected")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.Logger.Info().
		Str("source", c.Fetcher.Name()).
		Int("instruments", res.Store.Len()).
		Int("errors", len(res.Errors)).
		Msg("collection finished")
	return res, nil
}
