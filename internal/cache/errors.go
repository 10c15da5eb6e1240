package cache

import "errors"

var (
	// ErrUnsupportedScheme is returned by Open when the cache URL scheme has no backend.
	ErrUnsupportedScheme = errors.New("unsupported cache URL scheme")

	// ErrInvalidURL is returned by Open when the cache URL cannot be parsed.
	ErrInvalidURL = errors.New("invalid cache URL")

	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("cache store unavailable")

	// ErrCorruptEntry is returned when a stored value cannot be decoded.
	ErrCorruptEntry = errors.New("corrupt cache entry")
)
