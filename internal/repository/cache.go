package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"factorbt/internal/feed"
	"factorbt/types"
)

// cacheSlack absorbs weekends and holidays at either end of a request.
const cacheSlack = 5 * 24 * time.Hour

type PriceSource interface {
	LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*types.Matrix, error)
}

// CachedSource serves prices from a ParquetStore and fetches only the tickers
// whose stored history does not cover the requested range. Fetched prices
// are written back to the store. Tickers the upstream knows nothing about
// are left out of the result rather than failing the load.
type CachedSource struct {
	upstream PriceSource
	store    *ParquetStore
	now      func() time.Time
}

func NewCachedSource(upstream PriceSource, store *ParquetStore) *CachedSource {
	return &CachedSource{upstream: upstream, store: store, now: time.Now}
}

func (c *CachedSource) LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*types.Matrix, error) {
	stale, err := c.misses(tickers, start, end)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		fetched, err := c.upstream.LoadPrices(ctx, stale, start, end)
		switch {
		case errors.Is(err, feed.ErrNoData), errors.Is(err, ErrNoPrices):
			// nothing new upstream; serve whatever the store has
		case err != nil:
			return nil, err
		default:
			if err := c.store.SavePrices(fetched); err != nil {
				return nil, fmt.Errorf("cache prices: %w", err)
			}
		}
	}
	return c.store.LoadPrices(ctx, tickers, start, end)
}

func (c *CachedSource) misses(tickers []string, start, end time.Time) ([]string, error) {
	if end.IsZero() {
		end = c.now()
	}
	var stale []string
	for _, ticker := range tickers {
		first, last, ok, err := c.store.coverage(ticker)
		if err != nil {
			return nil, err
		}
		if !ok || first.After(start.Add(cacheSlack)) || last.Before(end.Add(-cacheSlack)) {
			stale = append(stale, ticker)
		}
	}
	return stale, nil
}
