package querycache

import "errors"

var (
	// ErrInvalidKey is returned when a key is empty or one of its parts cannot be encoded.
	ErrInvalidKey = errors.New("querycache: invalid key")

	// ErrNoFetcher is returned when EnsureFresh is called without a fetcher.
	ErrNoFetcher = errors.New("querycache: nil fetcher")
)
