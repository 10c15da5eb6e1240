// Package strips resolves requested dates to strips, reading through a
// shared cache and scraping the source site when the cache cannot answer.
//
// Two kinds of data are looked up the same way:
//   - strips, keyed by date, which never change once scraped
//   - the latest strip date, which is trusted for a limited time
//
// The Service runs both lookups for every request and keeps the cached
// latest date from falling behind strips it has actually seen.
package strips

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rharish101/dilbert-viewer/internal/cache"
	"github.com/rharish101/dilbert-viewer/internal/source"
)

// SourceClient fetches pages from the source site without following redirects.
type SourceClient interface {
	Get(ctx context.Context, path string) (*source.Response, error)
	// URL returns the absolute URL for path.
	URL(path string) string
}

// Service resolves strip requests.
type Service struct {
	strips    *stripScraper
	latest    *latestScraper
	breaker   *circuitBreaker
	metrics   *Metrics
	clock     Clock
	config    Config
	randInt64 func(n int64) int64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces the wall clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics records lookups in m.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service reading through store and scraping via client.
// Returns an error if any required dependency is nil or config is invalid.
func NewService(store cache.Store, client SourceClient, config Config, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: cache store", ErrNilDependency)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: source client", ErrNilDependency)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	loc, err := config.Location()
	if err != nil {
		return nil, err
	}

	s := &Service{
		clock:     SystemClock{},
		config:    config,
		randInt64: rand.Int64N,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = newCircuitBreaker(config.CircuitThreshold, config.CircuitOpenDuration, s.clock)
	s.strips = &stripScraper{
		store:      store,
		client:     client,
		breaker:    s.breaker,
		metrics:    s.metrics,
		pathPrefix: config.StripPathPrefix,
	}
	s.latest = &latestScraper{
		store:      store,
		client:     client,
		breaker:    s.breaker,
		metrics:    s.metrics,
		clock:      s.clock,
		location:   loc,
		freshness:  config.LatestFreshness,
		pathPrefix: config.StripPathPrefix,
	}
	return s, nil
}

// ResolveStrip returns the strip for date along with the latest known strip
// date. When no strip exists for date, it returns ErrStripNotFound, unless
// showLatest is set, in which case the latest strip is shown instead.
//
// The flow is:
//  1. Look up the strip for date and the latest date concurrently
//  2. Fall back to the latest strip if date has none and showLatest is set
//  3. If the shown strip is newer than the latest date, advance the latest
//     date and store it (best effort)
//
// Resolution is not cancelled by ctx, so a scrape started for a caller that
// has gone away still lands in the cache.
func (s *Service) ResolveStrip(ctx context.Context, date time.Time, showLatest bool) (*Resolution, error) {
	ctx = context.WithoutCancel(ctx)
	date = normalizeDate(date)

	var (
		strip  *Strip
		latest time.Time
		g      errgroup.Group
	)
	g.Go(func() error {
		var err error
		strip, err = s.strips.get(ctx, date)
		if err != nil {
			return fmt.Errorf("strip lookup for %s: %w", FormatDate(date), err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		latest, err = s.latest.get(ctx)
		if err != nil {
			return fmt.Errorf("latest date lookup: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shown := date
	if strip == nil {
		if !showLatest {
			return nil, fmt.Errorf("%w: %s", ErrStripNotFound, FormatDate(date))
		}

		var err error
		strip, err = s.strips.get(ctx, latest)
		if err != nil {
			return nil, fmt.Errorf("strip lookup for latest date %s: %w", FormatDate(latest), err)
		}
		if strip == nil {
			return nil, fmt.Errorf("%w: %s", ErrLatestStripMissing, FormatDate(latest))
		}
		shown = latest
	}

	if shown.After(latest) {
		slog.Info("[STRIPS] advancing latest date",
			"from", FormatDate(latest),
			"to", FormatDate(shown),
		)
		s.metrics.latestAdvanced()
		if err := s.latest.update(ctx, shown); err != nil {
			slog.Error("[STRIPS] failed to store latest date",
				"date", FormatDate(shown),
				"error", err,
			)
			s.metrics.cacheWriteError(kindLatest)
		}
		latest = shown
	}

	return &Resolution{Strip: *strip, Date: shown, LatestDate: latest}, nil
}

// LatestDate returns the date of the most recent strip.
func (s *Service) LatestDate(ctx context.Context) (time.Time, error) {
	return s.latest.get(context.WithoutCancel(ctx))
}

// RandomDate returns a uniformly random date between FirstStripDate and the
// latest strip date, inclusive.
func (s *Service) RandomDate(ctx context.Context) (time.Time, error) {
	latest, err := s.LatestDate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !latest.After(FirstStripDate) {
		return FirstStripDate, nil
	}

	days := int64(latest.Sub(FirstStripDate)/(24*time.Hour)) + 1
	return FirstStripDate.AddDate(0, 0, int(s.randInt64(days))), nil
}

// CircuitStats returns the scrape circuit breaker state per data kind.
func (s *Service) CircuitStats() map[string]CircuitStats {
	return s.breaker.stats()
}

// StartLatestRefreshJob starts a background goroutine that re-probes the
// latest strip date every interval, so requests find a fresh date in the
// cache. Returns a cancel function that should be called during shutdown.
// If interval is 0 or negative, no job is started and the cancel function
// is a no-op.
func (s *Service) StartLatestRefreshJob(interval time.Duration) context.CancelFunc {
	if interval <= 0 {
		slog.Info("[STRIPS] latest date refresh job disabled (interval=0)")
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("[STRIPS] CRITICAL: latest date refresh job panicked",
					"panic", r,
				)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		slog.Info("[STRIPS] latest date refresh job started", "interval", interval)

		for {
			select {
			case <-ctx.Done():
				slog.Info("[STRIPS] latest date refresh job stopped")
				return
			case <-ticker.C:
				latest, err := s.latest.refresh(ctx)
				if err != nil {
					slog.Error("[STRIPS] latest date refresh failed", "error", err)
					continue
				}
				slog.Info("[STRIPS] latest date refreshed", "date", FormatDate(latest))
			}
		}
	}()

	return cancel
}
