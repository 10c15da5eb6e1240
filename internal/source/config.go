package source

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config validation errors
var (
	// ErrInvalidBaseURL is returned when BaseURL is not an absolute http(s) URL
	ErrInvalidBaseURL = errors.New("BaseURL must be an absolute http(s) URL")
	// ErrInvalidResponseTimeout is returned when ResponseTimeout is not positive
	ErrInvalidResponseTimeout = errors.New("ResponseTimeout must be positive")
	// ErrInvalidBurst is returned when rate limiting is enabled with a non-positive burst
	ErrInvalidBurst = errors.New("Burst must be positive when RequestsPerSecond is set")
)

// Config holds the settings for talking to the source site.
type Config struct {
	// BaseURL is prepended to every request path.
	BaseURL string `env:"SOURCE_BASE_URL" envDefault:"https://web.archive.org/web/https://dilbert.com"`

	// ResponseTimeout bounds every request, including reading the body.
	ResponseTimeout time.Duration `env:"RESPONSE_TIMEOUT" envDefault:"10s"`

	// UserAgent is sent with every request.
	UserAgent string `env:"USER_AGENT" envDefault:"DilbertViewer/1.0"`

	// RequestsPerSecond limits outbound requests. 0 disables the limit.
	RequestsPerSecond float64 `env:"SOURCE_RPS" envDefault:"5"`

	// Burst is the number of requests allowed above the steady rate.
	Burst int `env:"SOURCE_BURST" envDefault:"10"`
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: got %q", ErrInvalidBaseURL, c.BaseURL)
	}
	if c.ResponseTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidResponseTimeout, c.ResponseTimeout)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBurst, c.Burst)
	}
	return nil
}

// DefaultConfig returns a Config pointing at the archived source site.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://web.archive.org/web/https://dilbert.com",
		ResponseTimeout:   10 * time.Second,
		UserAgent:         DefaultUserAgent,
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// NewClientFromConfig validates cfg and builds a Client from it.
func NewClientFromConfig(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewClient(cfg.BaseURL, cfg.ResponseTimeout,
		WithUserAgent(cfg.UserAgent),
		WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
	), nil
}
