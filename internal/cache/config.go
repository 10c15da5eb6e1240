package cache

import (
	"errors"
	"fmt"
	"time"
)

// Config validation errors
var (
	// ErrMissingURL is returned when URL is empty
	ErrMissingURL = errors.New("cache URL is required")
	// ErrInvalidMaxConns is returned when MaxConns is not positive
	ErrInvalidMaxConns = errors.New("MaxConns must be positive")
	// ErrInvalidTimeout is returned when Timeout is not positive
	ErrInvalidTimeout = errors.New("Timeout must be positive")
	// ErrInvalidMaxEntries is returned when MaxEntries is negative
	ErrInvalidMaxEntries = errors.New("MaxEntries cannot be negative")
)

// Config selects and sizes the cache backend.
type Config struct {
	// URL selects the backend by scheme: memory://, redis://, rediss://,
	// postgres://, postgresql:// or sqlite://<path>.
	URL string `env:"CACHE_URL" envDefault:"memory://"`

	// MaxConns bounds the connection pool for network backends.
	MaxConns int `env:"CACHE_MAX_CONNS" envDefault:"19"`

	// Timeout applies to every individual Get and Set.
	Timeout time.Duration `env:"CACHE_TIMEOUT" envDefault:"3s"`

	// MaxEntries caps the number of stored entries for the memory and SQL
	// backends. 0 leaves the SQL backends unbounded. Redis relies on its
	// own maxmemory policy instead.
	MaxEntries int `env:"CACHE_MAX_ENTRIES" envDefault:"10000"`
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.URL == "" {
		return ErrMissingURL
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxConns, c.MaxConns)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTimeout, c.Timeout)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxEntries, c.MaxEntries)
	}
	return nil
}

// DefaultConfig returns an in-memory cache configuration.
func DefaultConfig() Config {
	return Config{
		URL:        "memory://",
		MaxConns:   19,
		Timeout:    3 * time.Second,
		MaxEntries: 10000,
	}
}
