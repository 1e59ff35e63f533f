// Package dedupe tracks which archive source versions have been ingested so
// repeat uploads of identical bytes can be short-circuited.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// defaultMaxSize bounds how many source versions are remembered.
const defaultMaxSize = 1024

// Deduper records source versions already ingested.
type Deduper interface {
	// SeenAndRecord atomically checks if version was seen and records it if not.
	// Returns true if it was already seen.
	SeenAndRecord(ctx context.Context, version string) bool

	// Unrecord forgets a version so a failed run can be retried.
	Unrecord(ctx context.Context, version string)

	Size() int64
}

// inMemoryDeduper remembers up to maxSize versions and evicts the oldest
// recorded one first. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is newest
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, version string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[version]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		if oldest := d.order.Back(); oldest != nil {
			delete(d.seen, d.order.Remove(oldest).(string))
		}
	}
	d.seen[version] = d.order.PushFront(version)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, version string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[version]; ok {
		d.order.Remove(e)
		delete(d.seen, version)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
