package querycache

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultStaleTime matches the freshness window the dashboard has always used.
	DefaultStaleTime = 5 * time.Minute

	DefaultMaxEntries = 256
)

// Option is a function for configuring a Cache.
type Option func(*options)

type options struct {
	staleTime    time.Duration
	maxEntries   int
	clock        func() time.Time
	retries      int
	retryDelay   time.Duration
	retryable    func(error) bool
	fetchTimeout time.Duration
}

func defaultOptions() options {
	return options{
		staleTime:  DefaultStaleTime,
		maxEntries: DefaultMaxEntries,
		clock:      time.Now,
		retryable: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
	}
}

// WithStaleTime sets the default freshness window.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) {
		o.staleTime = d
	}
}

// WithMaxEntries bounds the number of entries; least recently used entries are evicted first.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithRetry retries a failed fetch up to attempts more times, doubling delay each time.
// By default fetches are not retried.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *options) {
		o.retries = attempts
		o.retryDelay = delay
	}
}

// WithRetryPolicy decides which fetch errors are worth another attempt.
func WithRetryPolicy(retryable func(error) bool) Option {
	return func(o *options) {
		o.retryable = retryable
	}
}

// WithFetchTimeout bounds every fetch. Zero means no bound beyond the fetcher's own.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

// QueryOption adjusts a single EnsureFresh call.
type QueryOption func(*queryOptions)

type queryOptions struct {
	staleTime  time.Duration
	background bool
}

// StaleTime overrides the cache's freshness window for this key.
func StaleTime(d time.Duration) QueryOption {
	return func(q *queryOptions) {
		q.staleTime = d
	}
}

// Background serves stale data immediately and refetches without making the caller wait.
// Callers rendering from the cache use it; loaders gating a navigation do not.
func Background() QueryOption {
	return func(q *queryOptions) {
		q.background = true
	}
}
