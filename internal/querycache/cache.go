// Package querycache is a keyed store of server state with time-based staleness,
// per-key de-duplication of concurrent fetches and prefix invalidation.
package querycache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads the data for one key, usually through the API client.
type Fetcher func(ctx context.Context) (any, error)

// Cache owns every cached entry. It is constructed once and shared by reference.
type Cache struct {
	op options

	mu      sync.Mutex
	entries *lru.Cache[string, *entry]

	// group guarantees at most one in-flight fetch per key id.
	group singleflight.Group
}

// New creates an empty Cache.
func New(opts ...Option) (*Cache, error) {
	op := defaultOptions()
	for _, opt := range opts {
		opt(&op)
	}

	if op.staleTime < 0 {
		return nil, fmt.Errorf("querycache: negative stale time %s", op.staleTime)
	}

	entries, err := lru.New[string, *entry](op.maxEntries)
	if err != nil {
		return nil, fmt.Errorf("querycache: %w", err)
	}

	return &Cache{op: op, entries: entries}, nil
}

// EnsureFresh returns the data for key, fetching it when it is missing or no longer fresh.
//
// A fresh entry is returned as is. Otherwise the caller waits for a fetch, unless Background
// is given and stale data exists: then that data is returned and the refetch runs on its own.
// Concurrent callers for the same key share one fetch. The fetch is detached from ctx, so a
// caller that stops waiting does not cancel it and the entry is still updated.
func (c *Cache) EnsureFresh(ctx context.Context, key Key, fetcher Fetcher, opts ...QueryOption) (any, error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}

	q := queryOptions{staleTime: c.op.staleTime}
	for _, opt := range opts {
		opt(&q)
	}

	id, parts, err := key.encode()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	ent := c.lookupLocked(id, key, parts)
	ent.staleTime = q.staleTime

	if ent.fresh(c.op.clock()) {
		data := ent.data
		c.mu.Unlock()
		return data, nil
	}

	if q.background && ent.hasData {
		data := ent.data
		c.mu.Unlock()
		c.fetch(ctx, id, key, parts, fetcher)
		return data, nil
	}
	c.mu.Unlock()

	select {
	case res := <-c.fetch(ctx, id, key, parts, fetcher):
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ensure is EnsureFresh with the cached value asserted to T.
func Ensure[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error), opts ...QueryOption) (T, error) {
	var zero T

	v, err := c.EnsureFresh(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, opts...)
	if err != nil {
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("querycache: %s holds %T, want %T", key, v, zero)
	}
	return t, nil
}

// Invalidate marks every entry whose key starts with prefix as stale, or every entry when
// prefix is empty. The next EnsureFresh for those keys refetches. It returns the number of
// entries matched.
func (c *Cache) Invalidate(prefix Key) int {
	return c.each(prefix, func(_ string, e *entry) {
		e.invalidated = true
		e.generation++
	})
}

// Remove evicts every entry whose key starts with prefix, or every entry when prefix is empty.
func (c *Cache) Remove(prefix Key) int {
	return c.each(prefix, func(id string, _ *entry) {
		c.entries.Remove(id)
	})
}

// SetData stores data for key as if it had just been fetched.
func (c *Cache) SetData(key Key, data any) error {
	id, parts, err := key.encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ent := c.lookupLocked(id, key, parts)
	ent.data, ent.hasData, ent.err = data, true, nil
	ent.fetchedAt = c.op.clock()
	ent.invalidated = false
	return nil
}

// Snapshot returns a copy of the entry for key without fetching.
func (c *Cache) Snapshot(key Key) (Entry, bool) {
	id, _, err := key.encode()
	if err != nil {
		return Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries.Peek(id)
	if !ok {
		return Entry{}, false
	}
	return ent.snapshot(c.op.clock()), true
}

// Len returns the number of entries held.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) each(prefix Key, fn func(id string, e *entry)) int {
	var want []string
	if len(prefix) > 0 {
		_, parts, err := prefix.encode()
		if err != nil {
			return 0
		}
		want = parts
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, id := range c.entries.Keys() {
		ent, ok := c.entries.Peek(id)
		if !ok || !hasPrefix(ent.parts, want) {
			continue
		}
		fn(id, ent)
		n++
	}
	return n
}

// lookupLocked returns the entry for id, creating an idle one if needed.
func (c *Cache) lookupLocked(id string, key Key, parts []string) *entry {
	if ent, ok := c.entries.Get(id); ok {
		return ent
	}

	ent := &entry{key: key, parts: parts, staleTime: c.op.staleTime}
	c.entries.Add(id, ent)
	return ent
}

func (c *Cache) fetch(ctx context.Context, id string, key Key, parts []string, fetcher Fetcher) <-chan singleflight.Result {
	return c.group.DoChan(id, func() (any, error) {
		c.mu.Lock()
		started := c.lookupLocked(id, key, parts)
		started.fetching = true
		gen := started.generation
		c.mu.Unlock()

		fctx := context.WithoutCancel(ctx)
		if c.op.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.op.fetchTimeout)
			defer cancel()
		}

		data, err := c.run(fctx, id, fetcher)

		c.mu.Lock()
		defer c.mu.Unlock()

		started.fetching = false
		if err != nil {
			log.Printf("[querycache] fetch %s failed: %v", id, err)
		}

		// An entry removed or evicted mid-flight is not brought back with data that
		// predates the removal. Waiters still get the result.
		if ent, ok := c.entries.Peek(id); !ok || ent != started {
			return data, err
		}

		if err != nil {
			started.err = err
			return nil, err
		}

		started.data, started.hasData, started.err = data, true, nil
		started.fetchedAt = c.op.clock()
		// An invalidation that landed mid-flight may describe a write this data predates.
		started.invalidated = started.generation != gen
		return data, nil
	})
}

// run calls fetcher, retrying retryable failures with a doubling delay.
func (c *Cache) run(ctx context.Context, id string, fetcher Fetcher) (any, error) {
	delay := c.op.retryDelay
	for attempt := 0; ; attempt++ {
		data, err := fetcher(ctx)
		if err == nil {
			return data, nil
		}
		if attempt >= c.op.retries || !c.op.retryable(err) {
			return nil, err
		}

		log.Printf("[querycache] fetch %s: %v. Retrying in %v...", id, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, err
		}
		delay *= 2
	}
}
