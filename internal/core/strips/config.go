package strips

import (
	"errors"
	"fmt"
	"time"
)

// Config validation errors
var (
	// ErrInvalidLatestFreshness is returned when LatestFreshness is not positive
	ErrInvalidLatestFreshness = errors.New("LatestFreshness must be positive")
	// ErrInvalidTimeZone is returned when TimeZone is not a known IANA zone
	ErrInvalidTimeZone = errors.New("TimeZone must be a valid IANA time zone")
	// ErrInvalidRefreshInterval is returned when RefreshInterval is negative
	ErrInvalidRefreshInterval = errors.New("RefreshInterval cannot be negative")
	// ErrInvalidCircuitThreshold is returned when CircuitThreshold is not positive
	ErrInvalidCircuitThreshold = errors.New("CircuitThreshold must be positive")
	// ErrInvalidCircuitOpenDuration is returned when CircuitOpenDuration is not positive
	ErrInvalidCircuitOpenDuration = errors.New("CircuitOpenDuration must be positive")
)

// Config holds the lookup policy for strips and the latest strip date.
type Config struct {
	// StripPathPrefix is prepended to YYYY-MM-DD to form a strip page path.
	StripPathPrefix string `env:"STRIP_PATH_PREFIX" envDefault:"strip/"`

	// LatestFreshness is how long a checked latest date is trusted.
	LatestFreshness time.Duration `env:"LATEST_REFRESH" envDefault:"2h"`

	// TimeZone is the zone in which the source publishes, used to decide
	// which calendar day "today" is.
	TimeZone string `env:"TIME_ZONE" envDefault:"UTC"`

	// RefreshInterval is how often the background job re-probes the latest
	// date. Set to 0 to disable the job.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"0s"`

	// CircuitThreshold is the number of consecutive failed scrapes that
	// suspends scraping.
	CircuitThreshold int `env:"CIRCUIT_THRESHOLD" envDefault:"3"`

	// CircuitOpenDuration is how long scraping stays suspended.
	CircuitOpenDuration time.Duration `env:"CIRCUIT_OPEN_DURATION" envDefault:"5m"`
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.LatestFreshness <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidLatestFreshness, c.LatestFreshness)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidRefreshInterval, c.RefreshInterval)
	}
	if c.CircuitThreshold <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCircuitThreshold, c.CircuitThreshold)
	}
	if c.CircuitOpenDuration <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidCircuitOpenDuration, c.CircuitOpenDuration)
	}
	return nil
}

// Location loads TimeZone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimeZone, c.TimeZone, err)
	}
	return loc, nil
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		StripPathPrefix:     "strip/",
		LatestFreshness:     2 * time.Hour,
		TimeZone:            "UTC",
		RefreshInterval:     0,
		CircuitThreshold:    3,
		CircuitOpenDuration: 5 * time.Minute,
	}
}
