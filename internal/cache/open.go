package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Open validates cfg and connects the backend selected by the URL scheme.
// SQL backends are migrated before Open returns.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	var store Store
	switch u.Scheme {
	case "memory":
		store, err = NewMemoryStore(cfg.MaxEntries)
	case "redis", "rediss":
		store, err = NewRedisStore(ctx, cfg.URL, cfg.MaxConns)
	case "postgres", "postgresql":
		store, err = NewPostgresStore(ctx, cfg.URL, cfg.MaxConns, cfg.MaxEntries)
	case "sqlite":
		path := u.Host + u.Path
		if path == "" {
			return nil, fmt.Errorf("%w: sqlite URL has no file path", ErrInvalidURL)
		}
		store, err = NewSQLiteStore(ctx, path, cfg.MaxEntries)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("[CACHE] store opened", "backend", u.Scheme, "timeout", cfg.Timeout)
	return &timeoutStore{Store: store, timeout: cfg.Timeout}, nil
}

// HasSchema reports whether the backend named by rawURL keeps its entries
// in a migrated SQL schema.
func HasSchema(rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "postgres", "postgresql", "sqlite":
		return true, nil
	case "memory", "redis", "rediss":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// timeoutStore bounds every operation of the wrapped store.
type timeoutStore struct {
	Store
	timeout time.Duration
}

func (s *timeoutStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Store.Get(ctx, key)
}

func (s *timeoutStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Store.Set(ctx, key, value)
}
