package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON reads key from s and decodes it into a new T.
// Returns nil, nil if the key is absent.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("%w: key %q: %v", ErrCorruptEntry, key, err)
	}
	return &value, nil
}

// SetJSON encodes value as JSON and stores it under key.
func SetJSON[T any](ctx context.Context, s Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
