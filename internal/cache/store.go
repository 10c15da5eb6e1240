package cache

import (
	"context"
)

// Store is a key/value cache shared by every request.
//
// Implementations own their capacity policy: callers never coordinate
// eviction and never hold locks across calls.
type Store interface {
	// Get returns the value stored under key. found is false when the key
	// is absent, which is not an error.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the connection pool.
	Close() error
}
