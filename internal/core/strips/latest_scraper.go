package strips

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rharish101/dilbert-viewer/internal/cache"
)

const (
	kindLatest    = "latest"
	latestDateKey = "latest-date"
)

// latestScraper tracks the date of the most recent strip. The cached date is
// trusted for a limited time after it was last checked.
type latestScraper struct {
	store      cache.Store
	client     SourceClient
	breaker    *circuitBreaker
	metrics    *Metrics
	clock      Clock
	location   *time.Location
	freshness  time.Duration
	pathPrefix string
}

func (l *latestScraper) kind() string { return kindLatest }

func (l *latestScraper) cached(ctx context.Context, key string) (*cacheEntry[time.Time], error) {
	info, err := cache.GetJSON[latestDateInfo](ctx, l.store, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheFailed, err)
	}
	if info == nil {
		return nil, nil
	}

	date, err := ParseDate(info.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: cached latest date: %w", ErrCacheFailed, err)
	}

	fresh := !info.LastCheck.Before(l.clock.Now().Add(-l.freshness))
	return &cacheEntry[time.Time]{data: date, fresh: fresh}, nil
}

func (l *latestScraper) cache(ctx context.Context, key string, date time.Time) error {
	info := latestDateInfo{Date: FormatDate(date), LastCheck: l.clock.Now().UTC()}
	if err := cache.SetJSON(ctx, l.store, key, info); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheFailed, err)
	}
	slog.Debug("[STRIPS] cached latest date", "date", info.Date)
	return nil
}

// scrape probes today's strip page in the configured time zone. A redirect
// means today's strip is not out yet, so the latest one is yesterday's.
func (l *latestScraper) scrape(ctx context.Context, _ string) (time.Time, error) {
	today := calendarDate(l.clock.Now(), l.location)
	path := l.pathPrefix + FormatDate(today)

	var latest time.Time
	err := l.breaker.call(kindLatest, func() error {
		resp, err := l.client.Get(ctx, path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrScrapeFailed, err)
		}

		switch {
		case resp.IsRedirect():
			latest = today.AddDate(0, 0, -1)
		case resp.IsSuccess():
			latest = today
		default:
			return fmt.Errorf("%w: unexpected status %d probing %s: %s",
				ErrScrapeFailed, resp.StatusCode, path, truncateBody(resp.Body))
		}
		return nil
	})
	return latest, err
}

// get returns the latest strip date.
func (l *latestScraper) get(ctx context.Context) (time.Time, error) {
	return fetchOrCache[string, time.Time](ctx, l, latestDateKey, l.metrics)
}

// update records date as the latest strip date, checked now.
func (l *latestScraper) update(ctx context.Context, date time.Time) error {
	return l.cache(ctx, latestDateKey, date)
}

// refresh probes the source regardless of freshness. The cached date never
// moves backwards.
func (l *latestScraper) refresh(ctx context.Context) (time.Time, error) {
	latest, err := l.scrape(ctx, latestDateKey)
	if err != nil {
		return time.Time{}, err
	}

	if entry, err := l.cached(ctx, latestDateKey); err == nil && entry != nil && entry.data.After(latest) {
		latest = entry.data
	}
	if err := l.update(ctx, latest); err != nil {
		return latest, err
	}
	return latest, nil
}
