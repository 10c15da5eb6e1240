package strips

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Result labels shared by the lookup metrics.
const (
	resultFresh    = "fresh"
	resultStale    = "stale"
	resultMiss     = "miss"
	resultError    = "error"
	resultOK       = "ok"
	resultNotFound = "not_found"
)

// cacheEntry is a cached value and whether it may be served without scraping.
type cacheEntry[D any] struct {
	data  D
	fresh bool
}

// dataSource is one kind of data that can be read from the cache or scraped
// from the source.
type dataSource[K, D any] interface {
	// kind names the data for logs and metrics.
	kind() string
	// cached returns nil, nil on a miss.
	cached(ctx context.Context, key K) (*cacheEntry[D], error)
	cache(ctx context.Context, key K, data D) error
	scrape(ctx context.Context, key K) (D, error)
}

// fetchOrCache resolves key through src:
//  1. A fresh cache entry is returned without scraping. A stale entry is
//     kept as a fallback. Cache read errors count as a miss.
//  2. Otherwise the source is scraped exactly once. Scraped data is written
//     back to the cache; a write failure is logged and never returned.
//  3. If the scrape fails, the stale fallback is returned if there is one,
//     else the scrape error.
func fetchOrCache[K, D any](ctx context.Context, src dataSource[K, D], key K, metrics *Metrics) (D, error) {
	kind := src.kind()

	var fallback *D
	entry, err := src.cached(ctx, key)
	switch {
	case err != nil:
		slog.Warn("[STRIPS] cache read failed, treating as miss",
			"kind", kind,
			"key", key,
			"error", err,
		)
		metrics.cacheLookup(kind, resultError)
	case entry == nil:
		metrics.cacheLookup(kind, resultMiss)
	case entry.fresh:
		slog.Debug("[STRIPS] cache hit", "kind", kind, "key", key)
		metrics.cacheLookup(kind, resultFresh)
		return entry.data, nil
	default:
		metrics.cacheLookup(kind, resultStale)
		fallback = &entry.data
	}

	start := time.Now()
	data, err := src.scrape(ctx, key)
	if err != nil {
		if errors.Is(err, ErrStripNotFound) {
			metrics.scrape(kind, resultNotFound, time.Since(start))
		} else {
			metrics.scrape(kind, resultError, time.Since(start))
		}

		if fallback != nil {
			slog.Warn("[STRIPS] scrape failed, serving stale data",
				"kind", kind,
				"key", key,
				"error", err,
			)
			metrics.staleServed(kind)
			return *fallback, nil
		}

		var zero D
		return zero, err
	}
	metrics.scrape(kind, resultOK, time.Since(start))

	if err := src.cache(ctx, key, data); err != nil {
		slog.Error("[STRIPS] failed to cache scraped data",
			"kind", kind,
			"key", key,
			"error", err,
		)
		metrics.cacheWriteError(kind)
	}

	return data, nil
}
