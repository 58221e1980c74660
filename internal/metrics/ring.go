package metrics

import "time"

// ring is a fixed-capacity FIFO sample store. Appending at capacity evicts
// the oldest entry; pruneBefore additionally drops entries older than a
// cutoff. Both eviction policies coexist and capacity is never exceeded.
// Not goroutine-safe; callers hold the collector's lock.
type ring[T any] struct {
	items []T
	cap   int
	// at extracts an item's timestamp for retention pruning.
	at func(T) time.Time
}

func newRing[T any](capacity int, at func(T) time.Time) *ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring[T]{
		items: make([]T, 0, capacity),
		cap:   capacity,
		at:    at,
	}
}

// append adds an item, evicting the oldest entry when full.
func (r *ring[T]) append(v T) {
	if len(r.items) >= r.cap {
		n := copy(r.items, r.items[len(r.items)-r.cap+1:])
		r.items = r.items[:n]
	}
	r.items = append(r.items, v)
}

// pruneBefore drops all items with a timestamp at or before cutoff.
// Timed samples arrive in completion order but are stamped with their start
// time, so the buffer is not strictly time-ordered; the whole slice is
// filtered. Idempotent.
func (r *ring[T]) pruneBefore(cutoff time.Time) {
	kept := r.items[:0]
	for _, item := range r.items {
		if r.at(item).After(cutoff) {
			kept = append(kept, item)
		}
	}
	r.items = kept
}

// snapshot returns a copy of the retained items.
func (r *ring[T]) snapshot() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

func (r *ring[T]) len() int { return len(r.items) }

func (r *ring[T]) clear() { r.items = r.items[:0] }
