package querycache

import "time"

// State is the derived status of a cache entry.
type State int

const (
	Idle State = iota
	Fetching
	Fresh
	Stale
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Entry is a point-in-time copy of a cached resource, as returned by Snapshot.
type Entry struct {
	Key       Key
	Data      any
	HasData   bool
	FetchedAt time.Time
	StaleTime time.Duration
	State     State
	Err       error
}

// entry is owned by the Cache and only touched with Cache.mu held.
type entry struct {
	key       Key
	parts     []string
	data      any
	hasData   bool
	fetchedAt time.Time
	staleTime time.Duration
	err       error
	fetching  bool

	// invalidated forces Stale regardless of age; generation counts invalidations
	// so a fetch that started before one does not clear it.
	invalidated bool
	generation  uint64
}

func (e *entry) fresh(now time.Time) bool {
	return e.hasData && e.err == nil && !e.invalidated && now.Sub(e.fetchedAt) < e.staleTime
}

func (e *entry) state(now time.Time) State {
	switch {
	case e.fetching:
		return Fetching
	case e.err != nil:
		return Errored
	case !e.hasData:
		return Idle
	case e.fresh(now):
		return Fresh
	default:
		return Stale
	}
}

func (e *entry) snapshot(now time.Time) Entry {
	return Entry{
		Key:       e.key,
		Data:      e.data,
		HasData:   e.hasData,
		FetchedAt: e.fetchedAt,
		StaleTime: e.staleTime,
		State:     e.state(now),
		Err:       e.err,
	}
}
