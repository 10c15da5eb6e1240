package strips

import "errors"

var (
	// ErrStripNotFound is returned when no strip exists for a date.
	ErrStripNotFound = errors.New("strip not found")

	// ErrScrapeFailed is returned when the source cannot be reached or its
	// response cannot be understood.
	ErrScrapeFailed = errors.New("failed to scrape source")

	// ErrCacheFailed is returned when the cache cannot be read or written.
	// It never escapes a lookup; failures are logged and the lookup continues.
	ErrCacheFailed = errors.New("cache operation failed")

	// ErrCircuitOpen is returned when scraping is suspended after repeated failures.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrLatestStripMissing is returned when the latest known date has no strip.
	ErrLatestStripMissing = errors.New("no strip exists for the latest date")

	// ErrInvalidDate is returned when a date string is not a valid YYYY-MM-DD date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")
)
