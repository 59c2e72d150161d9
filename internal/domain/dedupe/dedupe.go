// Package dedupe tracks keys that already have work pending so the same
// work is not queued twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Default deduper configuration constants.
const (
	defaultMaxSize = 1024
)

// Deduper records pending keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key is pending and records it if not.
	// Returns true if key was already pending, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord clears key once its work has been picked up or could not
	// be queued, allowing it to be recorded again.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map and an insertion-ordered
// list. In bounded mode the oldest key is evicted when full.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int        // 0 or negative = unbounded
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// SeenAndRecord atomically checks if key is pending and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

// Unrecord removes key from the pending set.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, exists := d.seen[key]; exists {
		d.order.Remove(e)
		delete(d.seen, key)
	}
}

// Size returns the current number of pending keys.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
