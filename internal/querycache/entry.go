package querycache

import "time"

// Status is the lifecycle of one cache entry.
type Status int

const (
	StatusPending Status = iota // first load in flight, no value yet
	StatusReady
	StatusStale // invalidated by a tag; next read reloads from page 1
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusStale:
		return "stale"
	case StatusError:
		return "error"
	}
	return "unknown"
}

type Entry[T any] struct {
	Key       string
	Tags      []string
	Status    Status
	Value     T
	Err       error
	UpdatedAt time.Time
	// HasValue is false until the first successful load.
	HasValue bool
	// Loading is set while a load runs; a held value stays servable.
	Loading bool
	// Gen changes on every invalidation. A load begun under an older
	// generation cannot commit.
	Gen uint64
}

// Usable reports whether Value can be served without a reload.
func (e Entry[T]) Usable() bool { return e.Status == StatusReady && e.HasValue }
