package strips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rharish101/dilbert-viewer/internal/cache"
)

const kindStrip = "strip"

// maxErrorBody caps how much of an unexpected response is quoted in errors.
const maxErrorBody = 512

// stripScraper looks up strips by date. Strips never change, so any cached
// strip is fresh.
type stripScraper struct {
	store      cache.Store
	client     SourceClient
	breaker    *circuitBreaker
	metrics    *Metrics
	pathPrefix string
}

func stripCacheKey(date time.Time) string {
	return "strip:" + FormatDate(date)
}

func (s *stripScraper) kind() string { return kindStrip }

func (s *stripScraper) cached(ctx context.Context, date time.Time) (*cacheEntry[Strip], error) {
	strip, err := cache.GetJSON[Strip](ctx, s.store, stripCacheKey(date))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheFailed, err)
	}
	if strip == nil {
		return nil, nil
	}
	return &cacheEntry[Strip]{data: *strip, fresh: true}, nil
}

func (s *stripScraper) cache(ctx context.Context, date time.Time, strip Strip) error {
	if err := cache.SetJSON(ctx, s.store, stripCacheKey(date), strip); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheFailed, err)
	}
	slog.Debug("[STRIPS] cached strip", "date", FormatDate(date))
	return nil
}

// scrape fetches the strip page for date. The source redirects instead of
// serving a page when no strip exists, which is reported as ErrStripNotFound.
func (s *stripScraper) scrape(ctx context.Context, date time.Time) (Strip, error) {
	path := s.pathPrefix + FormatDate(date)

	var strip Strip
	err := s.breaker.call(kindStrip, func() error {
		resp, err := s.client.Get(ctx, path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrScrapeFailed, err)
		}

		switch {
		case resp.IsRedirect():
			return fmt.Errorf("%w: %s", ErrStripNotFound, FormatDate(date))
		case !resp.IsSuccess():
			return fmt.Errorf("%w: unexpected status %d for %s: %s",
				ErrScrapeFailed, resp.StatusCode, path, truncateBody(resp.Body))
		}

		strip, err = parseStrip(resp.Body)
		if err != nil {
			return fmt.Errorf("strip %s: %w", FormatDate(date), err)
		}
		strip.Permalink = s.client.URL(path)
		return nil
	})
	return strip, err
}

// get returns the strip for date, or nil if none exists.
func (s *stripScraper) get(ctx context.Context, date time.Time) (*Strip, error) {
	strip, err := fetchOrCache[time.Time, Strip](ctx, s, date, s.metrics)
	if errors.Is(err, ErrStripNotFound) {
		slog.Info("[STRIPS] no strip for date", "date", FormatDate(date))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &strip, nil
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
